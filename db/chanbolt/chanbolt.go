package chanbolt

import (
	"bytes"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/pcutil"
	"github.com/unidir/unidir/store"
)

/*
Everything in one bolt file:

channels
|
|- chanId (32) : serialized PaymentChannel

payments
|
|- token : serialized Payment

tokens
|
|- token : chanId (32)

chanpay (index for the max-payment query)
|
|- chanId (32) || value (32, padded) : token

One db write at a time, which is fine here; per-channel operations are
serialized above this layer anyway.
*/

var (
	bktChannels = []byte("channels")
	bktPayments = []byte("payments")
	bktTokens   = []byte("tokens")
	bktChanPay  = []byte("chanpay")

	allBuckets = [][]byte{bktChannels, bktPayments, bktTokens, bktChanPay}
)

type boltStorage struct {
	db *bolt.DB
}

// Open opens (creating if needed) the channel db at the given path.
func Open(path string) (store.Storage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, n := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltStorage{db: db}, nil
}

func (s *boltStorage) Close() error {
	return s.db.Close()
}

func (s *boltStorage) Channels() store.ChannelStorage { return (*chanDB)(s) }
func (s *boltStorage) Payments() store.PaymentStorage { return (*payDB)(s) }
func (s *boltStorage) Tokens() store.TokenStorage     { return (*tokDB)(s) }

// RecordPayment writes channel, payment, and token in one transaction.
// Either everything lands or nothing does.
func (s *boltStorage) RecordPayment(pc *channel.PaymentChannel,
	p *channel.Payment, t channel.Token) error {

	pcBytes, err := pc.ToBytes()
	if err != nil {
		return err
	}
	pBytes, err := p.ToBytes()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bktChannels).Put(pc.ChanID[:], pcBytes); err != nil {
			return err
		}
		if err := tx.Bucket(bktPayments).Put([]byte(t), pBytes); err != nil {
			return err
		}
		if err := tx.Bucket(bktTokens).Put([]byte(t), p.ChanID[:]); err != nil {
			return err
		}
		return tx.Bucket(bktChanPay).Put(chanPayKey(p), []byte(t))
	})
}

func chanPayKey(p *channel.Payment) []byte {
	v := pcutil.BigTo32(p.Value)
	k := make([]byte, 0, 64)
	k = append(k, p.ChanID[:]...)
	k = append(k, v[:]...)
	return k
}

// ----- channels

type chanDB boltStorage

func (c *chanDB) Save(pc *channel.PaymentChannel) error {
	b, err := pc.ToBytes()
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bktChannels).Put(pc.ChanID[:], b)
	})
}

func (c *chanDB) ByID(id channel.ID) (*channel.PaymentChannel, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bktChannels).Get(id[:])
		if v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return channel.PaymentChannelFromBytes(raw)
}

func (c *chanDB) ByParties(sender, receiver channel.Address,
	id channel.ID) ([]*channel.PaymentChannel, error) {

	all, err := c.All()
	if err != nil {
		return nil, err
	}
	var out []*channel.PaymentChannel
	for _, pc := range all {
		if pc.Sender == sender && pc.Receiver == receiver && pc.ChanID == id {
			out = append(out, pc)
		}
	}
	return out, nil
}

func (c *chanDB) All() ([]*channel.PaymentChannel, error) {
	var out []*channel.PaymentChannel
	err := c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bktChannels).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			pc, err := channel.PaymentChannelFromBytes(v)
			if err != nil {
				return fmt.Errorf("bad channel record %x: %s", k, err.Error())
			}
			out = append(out, pc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ----- payments

type payDB boltStorage

func (p *payDB) ByToken(t channel.Token) (*channel.Payment, error) {
	var raw []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bktPayments).Get([]byte(t))
		if v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return channel.PaymentFromBytes(raw)
}

func (p *payDB) FirstMaximum(id channel.ID) (*channel.Payment, error) {
	var tok []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bktChanPay).Cursor()
		// keys are chanId || padded value, so within one channel they
		// sort ascending by value; the last one with our prefix wins
		for k, v := cur.Seek(id[:]); k != nil && bytes.HasPrefix(k, id[:]); k, v = cur.Next() {
			tok = make([]byte, len(v))
			copy(tok, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	return p.ByToken(channel.Token(tok))
}

// ----- tokens

type tokDB boltStorage

func (t *tokDB) IsPresent(tok channel.Token) (bool, error) {
	var present bool
	err := t.db.View(func(tx *bolt.Tx) error {
		present = tx.Bucket(bktTokens).Get([]byte(tok)) != nil
		return nil
	})
	return present, err
}

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/unidir/unidir/channel"
	"github.com/unidir/unidir/logging"
	"github.com/unidir/unidir/receiver"
)

/*
The gateway is the receiver's HTTP face: senders POST payments here and
get tokens back, and anyone holding a token can ask whether it's good.

POST /accept  {payment}       -> {token} | {error, claimed}
POST /verify  {token}         -> {accepted}
*/

// AcceptResponse is the body of a POST /accept reply.
type AcceptResponse struct {
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
	Claimed bool   `json:"claimed,omitempty"`
}

// VerifyRequest asks whether a token was minted here.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse answers a VerifyRequest.
type VerifyResponse struct {
	Accepted bool `json:"accepted"`
}

// Server exposes a Receiver over HTTP.
type Server struct {
	rcv *receiver.Receiver
}

// NewServer wraps rcv.
func NewServer(rcv *receiver.Receiver) *Server {
	return &Server{rcv: rcv}
}

// Router builds the gateway's route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/accept", s.AcceptHandler).Methods("POST")
	r.HandleFunc("/verify", s.VerifyHandler).Methods("POST")
	return r
}

// Listen serves the gateway until the listener dies.
func (s *Server) Listen(addr string) error {
	logging.Infof("gateway listening on %s for %s\n", addr, s.rcv.Account())
	return http.ListenAndServe(addr, s.Router())
}

// AcceptHandler takes a payment and answers with a token or a
// rejection.  A rejection that triggered a defensive claim still says
// so, so the sender knows the channel is on its way out.
func (s *Server) AcceptHandler(w http.ResponseWriter, req *http.Request) {
	var p channel.Payment
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, AcceptResponse{Error: err.Error()})
		return
	}

	res, err := s.rcv.AcceptPayment(req.Context(), &p)
	if err != nil {
		resp := AcceptResponse{Error: err.Error()}
		if res != nil {
			resp.Claimed = res.Claimed
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, AcceptResponse{Token: string(res.Token)})
}

// VerifyHandler answers whether a token was minted by this receiver.
func (s *Server) VerifyHandler(w http.ResponseWriter, req *http.Request) {
	var vr VerifyRequest
	if err := json.NewDecoder(req.Body).Decode(&vr); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyResponse{})
		return
	}
	ok, err := s.rcv.AcceptToken(channel.Token(vr.Token))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, VerifyResponse{})
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Accepted: ok})
}

func statusFor(err error) int {
	switch err {
	case channel.ErrBadSignature, channel.ErrAddressMismatch:
		return http.StatusBadRequest
	case channel.ErrFraudDetected, channel.ErrInvalidChannelState:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("gateway: write response: %s\n", err.Error())
	}
}

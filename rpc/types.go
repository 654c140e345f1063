package rpc

import (
	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/csmt"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
)

// TransactionResponse is returned by POST /v1/transactions. Failed transactions still carry their receipt.
type TransactionResponse struct {
	Receipt *ledger.Receipt `json:"receipt,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    uint32          `json:"code,omitempty"`
}

// AirdropRequest is the body of POST /v1/airdrop.
type AirdropRequest struct {
	Address  ledger.Address `json:"address"`
	Lamports uint64         `json:"lamports"`
}

// AccountResponse is returned by GET /v1/accounts/:address.
type AccountResponse struct {
	Address ledger.Address  `json:"address"`
	Account *ledger.Account `json:"account"`
}

// RecordResponse is returned by GET /v1/records/:id.
type RecordResponse struct {
	Address  ledger.Address              `json:"address"`
	Lamports uint64                      `json:"lamports"`
	Record   *sentinel.TransactionRecord `json:"record"`
}

// ProofResponse is returned by GET /v1/records/:id/proof. Witness proves Account at Address under StateRoot.
type ProofResponse struct {
	Address   ledger.Address            `json:"address"`
	Account   *ledger.Account           `json:"account"`
	StateRoot chainhash.Hash            `json:"state_root"`
	Witness   *csmt.VerificationWitness `json:"witness"`
}

// Verify checks the proof and returns the record it proves.
func (p *ProofResponse) Verify() (*sentinel.TransactionRecord, bool) {
	if !ledger.VerifyAccount(p.StateRoot, p.Address, p.Account, p.Witness) {
		return nil, false
	}
	record, err := sentinel.DeserializeRecord(p.Account.Data)
	if err != nil {
		return nil, false
	}
	return record, true
}

// StateResponse is returned by GET /v1/state.
type StateResponse struct {
	Slot      uint64         `json:"slot"`
	StateRoot chainhash.Hash `json:"state_root"`
	ProgramID ledger.Address `json:"program_id"`
}

// AlertsResponse is returned by GET /v1/fraud.
type AlertsResponse struct {
	Alerts []indexer.FraudAlert `json:"alerts"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Message string `json:"message"`
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/phoreproject/sentinel/client"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
)

const (
	requestTimeout  = 10 * time.Second
	defaultAirdrop  = 1000000000
	defaultAlertMax = 20
)

// OracleCMD handles the commands of the oracle console.
type OracleCMD struct {
	client    *client.Client
	programID ledger.Address
	receiver  ledger.Address
	key       *ledger.Keypair

	ExitChan chan struct{}
	w        io.Writer
	out      *color.Color
	errOut   *color.Color
}

// NewOracleCMD creates a console talking to c.
func NewOracleCMD(c *client.Client, programID ledger.Address, receiver ledger.Address, w io.Writer, out *color.Color, errOut *color.Color) *OracleCMD {
	return &OracleCMD{
		client:    c,
		programID: programID,
		receiver:  receiver,
		ExitChan:  make(chan struct{}, 1),
		w:         w,
		out:       out,
		errOut:    errOut,
	}
}

func (o *OracleCMD) printf(f string, a ...interface{}) {
	_, _ = o.out.Fprintf(o.w, f, a...)
}

func (o *OracleCMD) errf(f string, a ...interface{}) {
	_, _ = o.errOut.Fprintf(o.w, f, a...)
}

func (o *OracleCMD) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (o *OracleCMD) requireKey() bool {
	if o.key == nil {
		o.errf("No key loaded. Run keygen or usekey first.\n")
		return false
	}
	return true
}

// Keygen generates a new oracle key and makes it the active one.
func (o *OracleCMD) Keygen(args []string) {
	k, err := ledger.GenerateKeypair(rand.Reader)
	if err != nil {
		o.errf("Error generating key: %s\n", err)
		return
	}
	o.key = k
	o.printf("Address: %s\n", k.Address())
	o.printf("Seed:    %s\n", hex.EncodeToString(k.Seed()))
}

// UseKey loads an oracle key from its hex seed.
func (o *OracleCMD) UseKey(args []string) {
	if len(args) != 1 {
		o.errf("Usage: usekey <seedhex>\n")
		return
	}
	seed, err := hex.DecodeString(args[0])
	if err != nil {
		o.errf("Invalid seed: %s\n", err)
		return
	}
	k, err := ledger.KeypairFromSeed(seed)
	if err != nil {
		o.errf("Invalid seed: %s\n", err)
		return
	}
	o.key = k
	o.printf("Using %s\n", k.Address())
}

// Airdrop funds the active key from the node's faucet.
func (o *OracleCMD) Airdrop(args []string) {
	if !o.requireKey() {
		return
	}
	lamports := uint64(defaultAirdrop)
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			o.errf("Invalid amount: %s\n", args[0])
			return
		}
		lamports = n
	}

	ctx, cancel := o.context()
	defer cancel()
	receipt, err := o.client.Airdrop(ctx, o.key.Address(), lamports)
	if err != nil {
		o.errf("Error requesting airdrop: %s\n", err)
		return
	}
	o.printf("Airdropped %d lamports to %s in slot %d\n", lamports, o.key.Address(), receipt.Slot)
}

// Balance shows the lamports held by an address, the active key by default.
func (o *OracleCMD) Balance(args []string) {
	var addr ledger.Address
	switch {
	case len(args) > 0:
		a, err := ledger.ParseAddress(args[0])
		if err != nil {
			o.errf("Invalid address: %s\n", args[0])
			return
		}
		addr = a
	case o.requireKey():
		addr = o.key.Address()
	default:
		return
	}

	ctx, cancel := o.context()
	defer cancel()
	a, err := o.client.Account(ctx, addr)
	if err != nil {
		o.errf("Error getting balance: %s\n", err)
		return
	}
	o.printf("Balance of %s is %d\n", addr, a.Lamports)
}

func parseVerdict(args []string) (*sentinel.ProcessTransactionArgs, error) {
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return nil, errors.Errorf("invalid amount %s", args[1])
	}
	score, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil {
		return nil, errors.Errorf("invalid score %s", args[2])
	}
	isFraud, err := strconv.ParseBool(args[3])
	if err != nil {
		return nil, errors.Errorf("invalid is_fraud %s", args[3])
	}
	return &sentinel.ProcessTransactionArgs{
		TransactionID: args[0],
		Amount:        amount,
		FraudScore:    uint8(score),
		IsFraud:       isFraud,
	}, nil
}

// Process records a verdict on the ledger. Without a signature the verdict is signed with the active key.
func (o *OracleCMD) Process(args []string) {
	if len(args) != 4 && len(args) != 5 {
		o.errf("Usage: process <id> <amount> <score> <is_fraud> [sighex]\n")
		return
	}
	if !o.requireKey() {
		return
	}
	verdict, err := parseVerdict(args)
	if err != nil {
		o.errf("%s\n", err)
		return
	}
	if len(args) == 5 {
		sig, err := hex.DecodeString(strings.TrimPrefix(args[4], "0x"))
		if err != nil {
			o.errf("Invalid signature: %s\n", err)
			return
		}
		verdict.Signature = sig
	} else {
		verdict.Signature = o.key.Sign(sentinel.OracleMessage(verdict.TransactionID, verdict.FraudScore, verdict.IsFraud))
	}

	ix, err := sentinel.ProcessTransactionInstruction(o.programID, o.key.Address(), o.receiver, *verdict)
	if err != nil {
		o.errf("Error building instruction: %s\n", err)
		return
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(o.key)

	ctx, cancel := o.context()
	defer cancel()
	receipt, err := o.client.SubmitTransaction(ctx, tx)
	if err != nil {
		o.errf("Transaction failed: %s\n", err)
		if apiErr, ok := err.(*client.APIError); ok && apiErr.Receipt != nil {
			for _, l := range apiErr.Receipt.Logs {
				o.errf("  %s\n", l)
			}
		}
		return
	}

	for _, l := range receipt.Logs {
		o.printf("  %s\n", l)
	}
	o.printf("Recorded %s in slot %d (%s)\n", verdict.TransactionID, receipt.Slot, receipt.Signature)
}

// Record shows the stored record of a transaction and checks its state proof.
func (o *OracleCMD) Record(args []string) {
	if len(args) != 1 {
		o.errf("Usage: record <id>\n")
		return
	}

	ctx, cancel := o.context()
	defer cancel()
	proof, err := o.client.Proof(ctx, args[0])
	if err != nil {
		o.errf("Error getting record: %s\n", err)
		return
	}
	r, ok := proof.Verify()
	if !ok {
		o.errf("Record of %s does not match state root %s\n", args[0], proof.StateRoot)
		return
	}

	o.printf("Address:   %s\n", proof.Address)
	o.printf("Amount:    %d\n", r.Amount)
	o.printf("Sender:    %s\n", r.Sender)
	o.printf("Receiver:  %s\n", r.Receiver)
	o.printf("Score:     %d\n", r.FraudScore)
	o.printf("Fraud:     %t\n", r.IsFraud)
	o.printf("Timestamp: %s\n", time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339))
	o.printf("Signature: %s\n", hex.EncodeToString(r.Signature))
	o.printf("Verified against state root %s\n", proof.StateRoot)
}

// Fraud lists indexed fraud alerts, optionally only those scored at least min_score.
func (o *OracleCMD) Fraud(args []string) {
	ctx, cancel := o.context()
	defer cancel()

	var (
		alerts []indexer.FraudAlert
		err    error
	)
	if len(args) > 0 {
		score, perr := strconv.ParseUint(args[0], 10, 8)
		if perr != nil {
			o.errf("Invalid score: %s\n", args[0])
			return
		}
		alerts, err = o.client.AlertsAboveScore(ctx, uint8(score))
	} else {
		alerts, err = o.client.LatestAlerts(ctx, defaultAlertMax)
	}
	if err != nil {
		o.errf("Error listing alerts: %s\n", err)
		return
	}

	if len(alerts) == 0 {
		o.printf("No fraud alerts.\n")
		return
	}
	for _, a := range alerts {
		o.printf("%-32s score %3d slot %d\n", a.TransactionID, a.FraudScore, a.Slot)
	}
}

// State shows the node's slot and state root.
func (o *OracleCMD) State(args []string) {
	ctx, cancel := o.context()
	defer cancel()
	s, err := o.client.State(ctx)
	if err != nil {
		o.errf("Error getting state: %s\n", err)
		return
	}
	o.printf("Slot %d, state root %s, program %s\n", s.Slot, s.StateRoot, s.ProgramID)
}

// Exit exits the console.
func (o *OracleCMD) Exit(args []string) {
	o.printf("Exiting...\n")
	select {
	case o.ExitChan <- struct{}{}:
	default:
	}
}

package sentinel

import (
	"bytes"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionIDLength is the longest transaction id a record holds. It is also the seed length limit.
	MaxTransactionIDLength = ledger.MaxSeedLength

	// MaxSignatureLength is the longest oracle signature a record holds.
	MaxSignatureLength = 64

	// RecordSpace is the size of a record account: discriminator, id, amount, sender, receiver, score, flag,
	// timestamp and signature.
	RecordSpace = 8 + (4 + MaxTransactionIDLength) + 8 + 32 + 32 + 1 + 1 + 8 + (4 + MaxSignatureLength)
)

var recordDiscriminator = chainhash.Discriminator("account:TransactionRecord")

// TransactionRecord is the assessment of one transaction as written to the ledger.
type TransactionRecord struct {
	TransactionID string         `json:"transaction_id"`
	Amount        uint64         `json:"amount"`
	Sender        ledger.Address `json:"sender"`
	Receiver      ledger.Address `json:"receiver"`
	FraudScore    uint8          `json:"fraud_score"`
	IsFraud       bool           `json:"is_fraud"`
	Timestamp     int64          `json:"timestamp"`
	Signature     []byte         `json:"signature"`
}

// checkSize fails if the variable length fields do not fit in RecordSpace.
func (r *TransactionRecord) checkSize() error {
	if len(r.TransactionID) > MaxTransactionIDLength {
		return errors.Wrapf(ErrOversizeField, "transaction id is %d bytes, limit is %d", len(r.TransactionID), MaxTransactionIDLength)
	}
	if len(r.Signature) > MaxSignatureLength {
		return errors.Wrapf(ErrOversizeField, "signature is %d bytes, limit is %d", len(r.Signature), MaxSignatureLength)
	}
	return nil
}

// Serialize encodes the record into exactly RecordSpace bytes.
func (r *TransactionRecord) Serialize() ([]byte, error) {
	if err := r.checkSize(); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, RecordSpace))
	w := utils.NewWriter(buf)
	w.WriteBytes(recordDiscriminator[:])
	w.WriteString(r.TransactionID)
	w.WriteUint64(r.Amount)
	w.WriteBytes(r.Sender[:])
	w.WriteBytes(r.Receiver[:])
	w.WriteUint8(r.FraudScore)
	w.WriteBool(r.IsFraud)
	w.WriteInt64(r.Timestamp)
	w.WriteVarBytes(r.Signature)
	if err := w.Err(); err != nil {
		return nil, err
	}

	out := make([]byte, RecordSpace)
	copy(out, buf.Bytes())
	return out, nil
}

// DeserializeRecord decodes record account data.
func DeserializeRecord(data []byte) (*TransactionRecord, error) {
	r := utils.NewReader(bytes.NewReader(data))

	var disc [8]byte
	if err := r.ReadBytes(disc[:]); err != nil {
		return nil, errors.Wrap(err, "error reading discriminator")
	}
	if disc != recordDiscriminator {
		return nil, errors.New("account is not a transaction record")
	}

	var err error
	out := new(TransactionRecord)
	if out.TransactionID, err = r.ReadString(MaxTransactionIDLength); err != nil {
		return nil, errors.Wrap(err, "error reading transaction id")
	}
	if out.Amount, err = r.ReadUint64(); err != nil {
		return nil, errors.Wrap(err, "error reading amount")
	}
	if err := r.ReadBytes(out.Sender[:]); err != nil {
		return nil, errors.Wrap(err, "error reading sender")
	}
	if err := r.ReadBytes(out.Receiver[:]); err != nil {
		return nil, errors.Wrap(err, "error reading receiver")
	}
	if out.FraudScore, err = r.ReadUint8(); err != nil {
		return nil, errors.Wrap(err, "error reading fraud score")
	}
	if out.IsFraud, err = r.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "error reading fraud flag")
	}
	if out.Timestamp, err = r.ReadInt64(); err != nil {
		return nil, errors.Wrap(err, "error reading timestamp")
	}
	if out.Signature, err = r.ReadVarBytes(MaxSignatureLength); err != nil {
		return nil, errors.Wrap(err, "error reading signature")
	}
	return out, nil
}

// AccountGetter reads committed accounts.
type AccountGetter interface {
	GetAccount(addr ledger.Address) (*ledger.Account, error)
}

// LoadRecord fetches and decodes the record for transactionID.
func LoadRecord(accounts AccountGetter, programID ledger.Address, transactionID string) (*TransactionRecord, ledger.Address, error) {
	addr, _, err := RecordAddress(programID, transactionID)
	if err != nil {
		return nil, ledger.Address{}, err
	}

	a, err := accounts.GetAccount(addr)
	if err != nil {
		return nil, addr, err
	}
	if !a.InUse() {
		return nil, addr, errors.Wrapf(ErrRecordNotFound, "transaction %s", transactionID)
	}
	if a.Owner != programID {
		return nil, addr, errors.Errorf("account %s is owned by %s", addr, a.Owner)
	}

	record, err := DeserializeRecord(a.Data)
	if err != nil {
		return nil, addr, err
	}
	return record, addr, nil
}

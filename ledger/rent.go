package ledger

const (
	// AccountStorageOverhead is charged on top of every account's data length.
	AccountStorageOverhead = 128

	// LamportsPerByteYear is the rent rate.
	LamportsPerByteYear = 3480

	// ExemptionThresholdYears is how many years of rent make an account rent exempt.
	ExemptionThresholdYears = 2

	// MaxAccountDataSize is the largest account the system program will allocate.
	MaxAccountDataSize = 10 * 1024 * 1024
)

// MinimumBalance returns the lamports an account holding space bytes needs to be rent exempt.
func MinimumBalance(space uint64) uint64 {
	return (space + AccountStorageOverhead) * LamportsPerByteYear * ExemptionThresholdYears
}

package enums

// WalletTransactionType classifies entries on a user's wallet ledger.
type WalletTransactionType string

const (
	WalletTransactionTypeAccessCode      WalletTransactionType = "access_code"
	WalletTransactionTypeVideoAccessCode WalletTransactionType = "video_access_code"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeAccessCode,
	WalletTransactionTypeVideoAccessCode,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// WalletTransactionStatus tracks the settlement state of a wallet entry.
type WalletTransactionStatus string

const (
	WalletTransactionStatusCompleted WalletTransactionStatus = "completed"
	WalletTransactionStatusPending   WalletTransactionStatus = "pending"
	WalletTransactionStatusFailed    WalletTransactionStatus = "failed"
)

var validWalletTransactionStatuses = []WalletTransactionStatus{
	WalletTransactionStatusCompleted,
	WalletTransactionStatusPending,
	WalletTransactionStatusFailed,
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (s WalletTransactionStatus) IsValid() bool {
	for _, candidate := range validWalletTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

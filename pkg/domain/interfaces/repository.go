package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	RD() RDRepository
	RFP() RFPRepository
	Reply() ReplyRepository
	Quote() QuoteRepository

	Close() error
}

package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
)

type UseCases struct {
	repo            interfaces.Repository
	outbound        *bus.OutboundPublisher
	companyStaticID string
	expiry          interfaces.ExpiryChecker

	RD      *RDUseCase
	Request *RequestUseCase
	Quote   *QuoteUseCase
	Summary *SummaryUseCase
	Ingest  *IngestUseCase
}

type Option func(*UseCases)

// WithExpiryChecker wires the external timer collaborator used to report
// REQUEST_EXPIRED for unanswered requests.
func WithExpiryChecker(checker interfaces.ExpiryChecker) Option {
	return func(uc *UseCases) {
		uc.expiry = checker
	}
}

func New(repo interfaces.Repository, outbound *bus.OutboundPublisher, companyStaticID string, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:            repo,
		outbound:        outbound,
		companyStaticID: companyStaticID,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.RD = NewRDUseCase(repo)
	uc.Summary = NewSummaryUseCase(repo, uc.expiry)
	uc.Request = NewRequestUseCase(repo, outbound, companyStaticID)
	uc.Quote = NewQuoteUseCase(repo, outbound, companyStaticID, uc.Summary)
	uc.Ingest = NewIngestUseCase(repo, companyStaticID)

	return uc
}

// newReply constructs an immutable reply record. The message ID defaults to
// a fresh UUID for locally-initiated replies; inbound handlers pass the bus
// message ID so redelivery is detectable.
func newReply(t types.ReplyType, senderStaticID, messageID, comment, quoteID string) *model.ParticipantRFPReply {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &model.ParticipantRFPReply{
		StaticID:       uuid.NewString(),
		Type:           t,
		SenderStaticID: senderStaticID,
		MessageID:      messageID,
		Comment:        comment,
		QuoteID:        quoteID,
		CreatedAt:      time.Now().UTC(),
	}
}

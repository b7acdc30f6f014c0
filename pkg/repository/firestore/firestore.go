package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
)

type Firestore struct {
	client *firestore.Client
	rd     *rdRepository
	rfp    *rfpRepository
	reply  *replyRepository
	quote  *quoteRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes all collection names, used to isolate test
// runs sharing one database.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.rd.collectionPrefix = prefix
		f.rfp.collectionPrefix = prefix
		f.reply.collectionPrefix = prefix
		f.quote.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	f := &Firestore{
		client: client,
		rd:     newRDRepository(client),
		rfp:    newRFPRepository(client),
		reply:  newReplyRepository(client),
		quote:  newQuoteRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) RD() interfaces.RDRepository {
	return f.rd
}

func (f *Firestore) RFP() interfaces.RFPRepository {
	return f.rfp
}

func (f *Firestore) Reply() interfaces.ReplyRepository {
	return f.reply
}

func (f *Firestore) Quote() interfaces.QuoteRepository {
	return f.quote
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

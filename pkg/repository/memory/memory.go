package memory

import (
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
)

type Memory struct {
	rd    *rdRepository
	rfp   *rfpRepository
	reply *replyRepository
	quote *quoteRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		rd:    newRDRepository(),
		rfp:   newRFPRepository(),
		reply: newReplyRepository(),
		quote: newQuoteRepository(),
	}
}

func (m *Memory) RD() interfaces.RDRepository {
	return m.rd
}

func (m *Memory) RFP() interfaces.RFPRepository {
	return m.rfp
}

func (m *Memory) Reply() interfaces.ReplyRepository {
	return m.reply
}

func (m *Memory) Quote() interfaces.QuoteRepository {
	return m.quote
}

func (m *Memory) Close() error {
	return nil
}

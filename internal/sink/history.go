package sink

import (
	"context"
	"fmt"

	"github.com/ravitez/vinu/internal/history"
)

// History records each utterance in the SQLite history store and prunes old
// rows on close.
type History struct {
	store *history.Store
	keep  int
}

// NewHistory wraps an open store. The sink owns the store lifecycle.
func NewHistory(store *history.Store, keep int) *History {
	return &History{store: store, keep: keep}
}

func (s *History) Write(ctx context.Context, u Utterance) error {
	err := s.store.Append(ctx, history.Entry{
		Session: u.Session,
		Seq:     u.Seq,
		Text:    u.Text,
		StartMs: u.Start.Milliseconds(),
		EndMs:   u.End.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (s *History) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	pruneErr := s.store.Prune(ctx, s.keep)
	closeErr := s.store.Close()
	if pruneErr != nil {
		return pruneErr
	}
	return closeErr
}

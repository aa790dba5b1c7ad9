// Package maintenance holds background jobs that run outside the
// request path.
package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/project-hosting/internal/repository"
)

// StartLedgerSweeper sweeps expired refresh-token rows from the
// revocation ledger once immediately and then on every tick. It runs
// in its own goroutine and never blocks request handling.
func StartLedgerSweeper(tokens *repository.TokenRepo, interval time.Duration) {
	go func() {
		for {
			sweepOnce(tokens)
			time.Sleep(interval)
		}
	}()
}

func sweepOnce(tokens *repository.TokenRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := tokens.Sweep(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("ledger-sweeper: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("ledger-sweeper: removed %d expired refresh tokens", n)
	}
}

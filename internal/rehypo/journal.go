/*

Compensation journal. Ledger operations call out into the bank, the
trading pool and untrusted yield-source adapters; any later failure must
leave no trace of the earlier calls. Each successful external call records
its inverse here, and the operation either commits (journal discarded) or
rolls back (inverses run newest-first).

*/

package rehypo

import "github.com/rs/zerolog"

type journal struct {
	undo []func() error
}

// record registers the compensating call for a completed external effect.
func (j *journal) record(fn func() error) {
	j.undo = append(j.undo, fn)
}

// rollback runs the recorded compensations newest-first. A failing
// compensation is logged and the remainder still run; there is nothing
// better to do with funds the counterparty refuses to return.
func (j *journal) rollback(log zerolog.Logger) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](); err != nil {
			log.Error().Err(err).Int("step", i).Msg("Rollback compensation failed")
		}
	}
	j.undo = nil
}

// commit discards the journal, making all recorded effects final.
func (j *journal) commit() {
	j.undo = nil
}

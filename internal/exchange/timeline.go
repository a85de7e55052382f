package exchange

import (
	"container/heap"

	"main/internal/schema"
)

// The backtest runs on one logical timeline. Market data arrives already
// ordered from the series reader and is applied immediately; commands are
// queued here at send time + latency and drained as simulated time
// advances. Tie-break at equal effective timestamps: market data first,
// then commands, then module timers (modules run last in each advance).
// Within commands, FIFO by sequence number. This order is fixed for the
// whole run so identical inputs replay identically.

type commandKind uint8

const (
	cmdSubmitList commandKind = iota
	cmdModify
	cmdCancel
	cmdCancelBatch
	cmdCancelAll
)

// pendingCommand is one latency-delayed command awaiting its effective time.
type pendingCommand struct {
	effTs int64
	seq   uint64
	kind  commandKind

	submits  []schema.NewOrder
	modify   schema.ModifyOrder
	cancelID uint64
	batchIDs []uint64
	// cancelAll scope: zero means all instruments.
	instrumentID schema.InstrumentID
}

type commandQueue []*pendingCommand

func (q commandQueue) Len() int { return len(q) }

func (q commandQueue) Less(i, j int) bool {
	if q[i].effTs != q[j].effTs {
		return q[i].effTs < q[j].effTs
	}
	return q[i].seq < q[j].seq
}

func (q commandQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *commandQueue) Push(x any) { *q = append(*q, x.(*pendingCommand)) }

func (q *commandQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// peek returns the earliest pending command without removing it.
func (q commandQueue) peek() *pendingCommand {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func newCommandQueue() *commandQueue {
	q := make(commandQueue, 0, 64)
	heap.Init(&q)
	return &q
}

func (q *commandQueue) push(cmd *pendingCommand) {
	heap.Push(q, cmd)
}

func (q *commandQueue) pop() *pendingCommand {
	return heap.Pop(q).(*pendingCommand)
}

// hasPendingSubmit reports whether an insert for the order is still queued.
func (q commandQueue) hasPendingSubmit(orderID uint64) bool {
	for _, cmd := range q {
		if cmd.kind != cmdSubmitList {
			continue
		}
		for _, spec := range cmd.submits {
			if spec.OrderID == orderID {
				return true
			}
		}
	}
	return false
}

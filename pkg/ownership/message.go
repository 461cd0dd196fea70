package ownership

// Message is the tagged union carried on the result channel from the
// producer and the workers to the accumulator.
type Message interface {
	isMessage()
}

// Count announces how many Partial messages the accumulator must account
// for before the run is complete. It is sent exactly once, by the single
// producer, after traversal finishes. The protocol relies on in-order
// delivery from one producer to one consumer; with multiple producers or a
// cross-process transport it would need per-producer end-of-stream markers
// instead.
type Count struct {
	Total int
}

// Partial carries the attribution of one processed work item. A worker
// that failed to blame its item sends an empty Partial so the counting
// protocol still observes the item.
type Partial struct {
	Attribution AttributionMap
}

func (Count) isMessage()   {}
func (Partial) isMessage() {}

package simulator

import "sxsim/stream"

// Arena owns every stream of one simulation run. A run never sees another run's
// streams; the arena is dropped with the run.
type Arena struct {
	streams []*stream.Stream
}

// Stream allocates a stream in the arena.
func (a *Arena) Stream(number int, origin, destination string, components ...*stream.Component) *stream.Stream {
	s := stream.New(number, origin, destination, components...)
	a.streams = append(a.streams, s)
	return s
}

// Streams lists the streams in allocation order.
func (a *Arena) Streams() []*stream.Stream {
	res := make([]*stream.Stream, len(a.streams))
	copy(res, a.streams)
	return res
}

package marketdata

// Sender publishes encoded frames. Send must not block.
type Sender interface {
	Send(frame []byte) error
}

// Receiver hands out the data received so far. Poll must not block:
// it calls fn once per delivered message and returns when nothing more is available.
// A message may hold several frames or end in the middle of one.
type Receiver interface {
	Poll(fn func(data []byte) error) error
}

// SnapshotReceiver is a receiver joined only while a consumer recovers.
//
//go:generate mockgen -destination=mocks/interfaces.go -package=mockmarketdata . Sender,Receiver,SnapshotReceiver
type SnapshotReceiver interface {
	Receiver
	Subscribe() error
	Unsubscribe() error
}

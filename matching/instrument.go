package matching

// Instrument contains basic info about a traded instrument.
type Instrument struct {
	id   InstrumentID
	name string
}

// NewInstrument creates new instrument with specified ID and name.
func NewInstrument(id InstrumentID, name string) Instrument {
	return Instrument{
		id:   id,
		name: name,
	}
}

// ID returns the instrument ID.
func (i Instrument) ID() InstrumentID {
	return i.id
}

// Name returns the instrument name.
func (i Instrument) Name() string {
	return i.name
}

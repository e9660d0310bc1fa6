package cargo

import "github.com/pithecene-io/cargoexec/format"

// Observer sees every message decoded while a build's artifacts are
// resolved, in stream order, before the extractor inspects it.
type Observer interface {
	Observe(msg format.Message)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(msg format.Message)

// Observe calls f(msg).
func (f ObserverFunc) Observe(msg format.Message) {
	f(msg)
}

type multiObserver []Observer

func (m multiObserver) Observe(msg format.Message) {
	for _, o := range m {
		o.Observe(msg)
	}
}

// MultiObserver fans each message out to observers in order. Nil entries
// are skipped.
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

// decoder turns raw lines into messages and reports each decoded message
// to the observer.
type decoder struct {
	strict   bool
	observer Observer
}

func (d decoder) decode(raw Message) (format.Message, error) {
	var (
		msg format.Message
		err error
	)
	if d.strict {
		msg, err = raw.DecodeStrict()
	} else {
		msg, err = raw.Decode()
	}
	if err != nil {
		return nil, err
	}
	if d.observer != nil {
		d.observer.Observe(msg)
	}
	return msg, nil
}

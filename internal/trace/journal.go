package trace

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"
)

// Journal appends events to a write-ahead log on disk.
type Journal struct {
	mu        sync.Mutex
	log       *wal.Log
	nextIndex uint64
}

// OpenJournal opens or creates the journal in dir. New events are appended
// after any already present.
func OpenJournal(dir string) (*Journal, error) {
	log, err := wal.Open(dir, &wal.Options{NoSync: true})
	if err != nil {
		return nil, errors.WithMessage(err, "could not open trace journal")
	}

	lastIndex, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}

	return &Journal{log: log, nextIndex: lastIndex + 1}, nil
}

// Record appends e.
func (j *Journal) Record(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WithMessage(err, "could not encode event")
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.log.Write(j.nextIndex, data); err != nil {
		return errors.WithMessagef(err, "could not write index %d", j.nextIndex)
	}
	j.nextIndex++
	return nil
}

// Close syncs and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.log.Sync(); err != nil {
		j.log.Close()
		return errors.WithMessage(err, "could not sync trace journal")
	}
	return j.log.Close()
}

// ReadAll returns every event in the journal at dir, oldest first.
func ReadAll(dir string) ([]Event, error) {
	log, err := wal.Open(dir, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open trace journal")
	}
	defer log.Close()

	firstIndex, err := log.FirstIndex()
	if err != nil {
		return nil, errors.WithMessage(err, "could not read first index")
	}
	lastIndex, err := log.LastIndex()
	if err != nil {
		return nil, errors.WithMessage(err, "could not read last index")
	}
	if firstIndex == 0 || lastIndex == 0 {
		return nil, nil
	}

	events := make([]Event, 0, lastIndex-firstIndex+1)
	for i := firstIndex; i <= lastIndex; i++ {
		data, err := log.Read(i)
		if err != nil {
			return nil, errors.WithMessagef(err, "could not read index %d", i)
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, errors.WithMessagef(err, "could not decode index %d, is the journal corrupt?", i)
		}
		events = append(events, e)
	}
	return events, nil
}

package tendermint

import (
	"github.com/celer-network/eth-batch-sender/store/models"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	errStrDecodeOutcome = "could not decode outcome"
)

var (
	prefixOutcome = []byte("out")
)

func (store *TMStore) PutOutcome(outcome *models.Outcome) error {
	if outcome.ID == uuid.Nil {
		return errors.New("expected outcome to have an ID")
	}
	return set(store.nsOutcome, outcome.ID.Bytes(), outcome)
}

func (store *TMStore) GetOutcome(id uuid.UUID) (*models.Outcome, error) {
	var outcome models.Outcome
	err := get(store.nsOutcome, id.Bytes(), &outcome)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (store *TMStore) GetOutcomes() ([]*models.Outcome, error) {
	iter, err := store.nsOutcome.Iterator(nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, errStrCreateIter)
	}
	defer iter.Close()
	var outcomes []*models.Outcome
	for ; iter.Valid(); iter.Next() {
		var outcome models.Outcome
		if unmarshalErr := msgpack.Unmarshal(iter.Value(), &outcome); unmarshalErr != nil {
			return nil, errors.Wrap(unmarshalErr, errStrDecodeOutcome)
		}
		outcomes = append(outcomes, &outcome)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, errStrCreateIter)
	}
	return outcomes, nil
}

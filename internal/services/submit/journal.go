package submit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultJournalDir = "./wal/swaps"
	segmentLimit      = 100
	maxSegments       = 10

	attemptKeyPrefix     = "swap_attempt_"
	attemptStatusPending = "pending"
	attemptStatusDone    = "done"
	attemptStatusFailed  = "failed"
)

// Attempt is one journaled submission attempt. Written before broadcast
// with status pending and again after with the outcome, so a crash leaves
// a visible in-doubt record instead of a silent gap.
type Attempt struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	FromAsset string          `json:"from_asset"`
	ToAsset   string          `json:"to_asset"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
	Recipient string          `json:"recipient"`
	Inbound   string          `json:"inbound"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Time      time.Time       `json:"time"`
	Error     string          `json:"error,omitempty"`
}

// Journal persists submission attempts in a WAL.
type Journal struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewJournal initializes a WAL-backed attempt journal.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		dir = DefaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "swap_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init swap journal WAL")
	}

	return &Journal{wal: wal}, nil
}

// Open journals a new pending attempt before broadcast.
func (j *Journal) Open(fromAsset, toAsset string, amount decimal.Decimal, memo, recipient, inbound string) (*Attempt, error) {
	attempt := &Attempt{
		ID:        uuid.New().String(),
		Status:    attemptStatusPending,
		FromAsset: fromAsset,
		ToAsset:   toAsset,
		Amount:    amount,
		Memo:      memo,
		Recipient: recipient,
		Inbound:   inbound,
		Time:      time.Now(),
	}
	if err := j.persist(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// MarkDone records a successful broadcast.
func (j *Journal) MarkDone(attempt *Attempt, txHash string) error {
	if attempt == nil {
		return nil
	}
	attempt.Status = attemptStatusDone
	attempt.TxHash = txHash
	attempt.Error = ""
	return j.persist(attempt)
}

// MarkFailed records a failed broadcast.
func (j *Journal) MarkFailed(attempt *Attempt, err error) error {
	if attempt == nil {
		return nil
	}
	attempt.Status = attemptStatusFailed
	if err != nil {
		attempt.Error = err.Error()
	}
	return j.persist(attempt)
}

// Attempts replays the journal. The last record per attempt ID wins.
func (j *Journal) Attempts() ([]Attempt, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("swap journal is not initialized")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	latest := make(map[string]Attempt)
	var order []string
	for idx := uint64(1); idx <= j.wal.CurrentIndex(); idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, attemptKeyPrefix) {
			continue
		}
		var attempt Attempt
		if err := json.Unmarshal(payload, &attempt); err != nil {
			return nil, errors.Wrap(err, "decode swap attempt")
		}
		if _, seen := latest[attempt.ID]; !seen {
			order = append(order, attempt.ID)
		}
		latest[attempt.ID] = attempt
	}

	attempts := make([]Attempt, 0, len(order))
	for _, id := range order {
		attempts = append(attempts, latest[id])
	}
	return attempts, nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return errors.New("swap journal is not initialized")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.Close()
}

func (j *Journal) persist(attempt *Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return errors.Wrap(err, "marshal swap attempt")
	}
	key := fmt.Sprintf("%s%s", attemptKeyPrefix, attempt.ID)

	j.mu.Lock()
	defer j.mu.Unlock()

	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, key, payload)
}

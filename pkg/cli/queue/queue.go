/* Copyright 2025 BobbySync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package queue implements the durable FIFO of local operations waiting to
// be pushed
package queue

import (
	"encoding/json"

	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

// Entry is a queued operation with its position in the queue
type Entry struct {
	Seq int64
	Op  ops.Operation
}

// Queue is the outbound operation queue stored in the op_queue table
type Queue struct {
	db *database.DB
}

// New returns the queue stored in the given database
func New(db *database.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue appends an operation. Enqueueing an opId that is already queued
// is a no-op.
func (q *Queue) Enqueue(op ops.Operation) error {
	b, err := json.Marshal(op)
	if err != nil {
		return errors.Wrap(err, "marshalling operation")
	}

	if _, err := q.db.Exec("INSERT OR IGNORE INTO op_queue (op_id, data) VALUES (?, ?)", op.OpID, string(b)); err != nil {
		return errors.Wrapf(err, "enqueueing operation %s", op.OpID)
	}

	return nil
}

// Snapshot returns the queued entries in order without removing them
func (q *Queue) Snapshot() ([]Entry, error) {
	rows, err := q.db.Query("SELECT seq, data FROM op_queue ORDER BY seq")
	if err != nil {
		return nil, errors.Wrap(err, "querying the queue")
	}
	defer rows.Close()

	ret := []Entry{}
	for rows.Next() {
		var e Entry
		var data string
		if err := rows.Scan(&e.Seq, &data); err != nil {
			return nil, errors.Wrap(err, "scanning a queue entry")
		}
		if err := json.Unmarshal([]byte(data), &e.Op); err != nil {
			return nil, errors.Wrapf(err, "unmarshalling queue entry %d", e.Seq)
		}

		ret = append(ret, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating the queue")
	}

	return ret, nil
}

// Confirm removes the entries of a delivered batch. Entries enqueued after
// the batch was taken are kept. It returns the number of removed entries.
func (q *Queue) Confirm(batch []Entry) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	last := batch[len(batch)-1].Seq
	res, err := q.db.Exec("DELETE FROM op_queue WHERE seq <= ?", last)
	if err != nil {
		return 0, errors.Wrap(err, "confirming the batch")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting confirmed entries")
	}

	return int(n), nil
}

// Len returns the number of queued operations
func (q *Queue) Len() (int, error) {
	var n int
	if err := q.db.QueryRow("SELECT count(*) FROM op_queue").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting the queue")
	}

	return n, nil
}

// Operations returns the operations of the given entries
func Operations(entries []Entry) []ops.Operation {
	ret := make([]ops.Operation, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, e.Op)
	}

	return ret
}

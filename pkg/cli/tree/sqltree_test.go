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

package tree

import (
	"fmt"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/database"
	"github.com/bobbysync/bobbysync/pkg/clock"
	"github.com/bobbysync/bobbysync/pkg/ops"
	"github.com/pkg/errors"
)

func newTestTree(t *testing.T) (*SQLTree, *[]Event) {
	db := database.InitTestMemoryDB(t)
	tr := NewSQLTree(db, clock.NewMock())

	events := []Event{}
	tr.Subscribe(func(e Event) {
		events = append(events, e)
	})

	return tr, &events
}

func mustCreate(t *testing.T, tr *SQLTree, p CreateParams) Node {
	n, err := tr.Create(p)
	if err != nil {
		t.Fatal(errors.Wrapf(err, "creating %s", p.Title))
	}

	return n
}

func childTitles(t *testing.T, tr *SQLTree, id string) []string {
	children, err := tr.Children(id)
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing children"))
	}

	ret := []string{}
	for idx, c := range children {
		assert.Equal(t, c.Index, idx, fmt.Sprintf("index of %s", c.Title))
		ret = append(ret, c.Title)
	}

	return ret
}

func TestRoots(t *testing.T) {
	tr, _ := newTestTree(t)

	roots, err := tr.Roots()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(roots), 3, "root count mismatch")
	assert.Equal(t, roots[0].ID, "1", "first root id")
	assert.Equal(t, roots[1].Title, "Other Bookmarks", "second root title")
	assert.Equal(t, roots[2].IsRoot(), true, "roots have no parent")
	assert.Equal(t, roots[2].IsContainer(), true, "roots are containers")
}

func TestCreate(t *testing.T) {
	tr, events := newTestTree(t)

	a := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "a"})
	b := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "b", Content: ops.String("https://b.test")})
	mustCreate(t, tr, CreateParams{ParentID: "1", Title: "c", Index: ops.Int(0)})
	mustCreate(t, tr, CreateParams{ParentID: "1", Title: "d", Index: ops.Int(99)})
	mustCreate(t, tr, CreateParams{ParentID: "1", Title: "e", Type: ops.TypeLeaf})

	assert.DeepEqual(t, childTitles(t, tr, "1"), []string{"c", "a", "b", "d", "e"}, "order mismatch")
	assert.Equal(t, a.Type, ops.TypeContainer, "type inferred as container")
	assert.Equal(t, b.Type, ops.TypeLeaf, "type inferred as leaf")
	assert.Equal(t, len(*events), 5, "event count mismatch")
	assert.Equal(t, (*events)[1].Kind, EventCreated, "event kind mismatch")
	assert.Equal(t, (*events)[1].Node.ID, b.ID, "event node mismatch")

	e, err := tr.Get((*events)[4].Node.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ops.StringValue(e.Content), "", "empty leaf content")
	assert.NotEqual(t, e.Content, (*string)(nil), "leaf content should not be null")

	_, err = tr.Create(CreateParams{ParentID: b.ID, Title: "x"})
	assert.Equal(t, errors.Cause(err), ErrLeafParent, "leaf parent error mismatch")

	_, err = tr.Create(CreateParams{ParentID: "404", Title: "x"})
	assert.Equal(t, errors.Cause(err), ErrNotFound, "missing parent error mismatch")
	assert.Equal(t, len(*events), 5, "failed creates should not notify")
}

func TestUpdate(t *testing.T) {
	tr, events := newTestTree(t)

	folder := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "folder"})
	leaf := mustCreate(t, tr, CreateParams{ParentID: folder.ID, Title: "leaf", Content: ops.String("https://a.test")})
	*events = (*events)[:0]

	got, err := tr.Update(leaf.ID, UpdateParams{Title: ops.String("renamed"), Content: ops.String("https://b.test")})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.Title, "renamed", "title mismatch")
	assert.Equal(t, ops.StringValue(got.Content), "https://b.test", "content mismatch")
	assert.Equal(t, len(*events), 1, "event count mismatch")
	assert.Equal(t, (*events)[0].Kind, EventChanged, "event kind mismatch")

	_, err = tr.Update(leaf.ID, UpdateParams{Title: ops.String("renamed")})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(*events), 1, "unchanged update should not notify")

	_, err = tr.Update(folder.ID, UpdateParams{Content: ops.String("https://c.test")})
	assert.Equal(t, errors.Cause(err), ErrContainerContent, "container content error mismatch")

	_, err = tr.Update("1", UpdateParams{Title: ops.String("x")})
	assert.Equal(t, errors.Cause(err), ErrRootImmutable, "root error mismatch")
}

func TestMove(t *testing.T) {
	testCases := []struct {
		id             string
		parentID       string
		index          *int
		expectedBar    []string
		expectedOther  []string
		expectedEvents int
	}{
		{
			// reorder within the same parent
			id:             "a",
			parentID:       "1",
			index:          ops.Int(2),
			expectedBar:    []string{"b", "c", "a"},
			expectedOther:  []string{},
			expectedEvents: 1,
		},
		{
			id:             "c",
			parentID:       "1",
			index:          ops.Int(0),
			expectedBar:    []string{"c", "a", "b"},
			expectedOther:  []string{},
			expectedEvents: 1,
		},
		{
			// already in place
			id:             "b",
			parentID:       "1",
			index:          ops.Int(1),
			expectedBar:    []string{"a", "b", "c"},
			expectedOther:  []string{},
			expectedEvents: 0,
		},
		{
			id:             "b",
			parentID:       "2",
			index:          nil,
			expectedBar:    []string{"a", "c"},
			expectedOther:  []string{"b"},
			expectedEvents: 1,
		},
		{
			// empty parent keeps the current one
			id:             "a",
			parentID:       "",
			index:          nil,
			expectedBar:    []string{"b", "c", "a"},
			expectedOther:  []string{},
			expectedEvents: 1,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			tr, events := newTestTree(t)
			ids := map[string]string{}
			for _, title := range []string{"a", "b", "c"} {
				ids[title] = mustCreate(t, tr, CreateParams{ParentID: "1", Title: title}).ID
			}
			*events = (*events)[:0]

			n, err := tr.Move(ids[tc.id], tc.parentID, tc.index)
			if err != nil {
				t.Fatal(errors.Wrap(err, "moving"))
			}

			assert.DeepEqual(t, childTitles(t, tr, "1"), tc.expectedBar, "bar children mismatch")
			assert.DeepEqual(t, childTitles(t, tr, "2"), tc.expectedOther, "other children mismatch")
			assert.Equal(t, len(*events), tc.expectedEvents, "event count mismatch")
			if tc.expectedEvents > 0 {
				e := (*events)[0]
				assert.Equal(t, e.Kind, EventMoved, "event kind mismatch")
				assert.Equal(t, e.OldParentID, "1", "old parent mismatch")
				assert.Equal(t, e.Node.ParentID, n.ParentID, "event parent mismatch")
				assert.Equal(t, e.Node.Index, n.Index, "event index mismatch")
			}
		})
	}
}

func TestMove_invalid(t *testing.T) {
	tr, _ := newTestTree(t)

	outer := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "outer"})
	inner := mustCreate(t, tr, CreateParams{ParentID: outer.ID, Title: "inner"})
	leaf := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "leaf", Content: ops.String("u")})

	testCases := []struct {
		id          string
		parentID    string
		expectedErr error
	}{
		{id: outer.ID, parentID: inner.ID, expectedErr: ErrCycle},
		{id: outer.ID, parentID: outer.ID, expectedErr: ErrCycle},
		{id: inner.ID, parentID: leaf.ID, expectedErr: ErrLeafParent},
		{id: "1", parentID: "2", expectedErr: ErrRootImmutable},
		{id: "404", parentID: "2", expectedErr: ErrNotFound},
	}

	for idx, tc := range testCases {
		_, err := tr.Move(tc.id, tc.parentID, nil)

		assert.Equal(t, errors.Cause(err), tc.expectedErr, fmt.Sprintf("error mismatch for test case %d", idx))
	}
}

func TestRemove(t *testing.T) {
	tr, events := newTestTree(t)

	folder := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "folder"})
	mustCreate(t, tr, CreateParams{ParentID: folder.ID, Title: "leaf", Content: ops.String("u")})
	sub := mustCreate(t, tr, CreateParams{ParentID: folder.ID, Title: "sub"})
	mustCreate(t, tr, CreateParams{ParentID: sub.ID, Title: "deep", Content: ops.String("v")})
	last := mustCreate(t, tr, CreateParams{ParentID: "1", Title: "last"})
	*events = (*events)[:0]

	err := tr.Remove(folder.ID)
	assert.Equal(t, errors.Cause(err), ErrNotEmpty, "non-empty remove error mismatch")

	err = tr.Remove("2")
	assert.Equal(t, errors.Cause(err), ErrRootImmutable, "root remove error mismatch")

	if err := tr.RemoveTree(folder.ID); err != nil {
		t.Fatal(errors.Wrap(err, "removing tree"))
	}

	var count int
	database.MustScan(t, "counting nodes", tr.db.QueryRow("SELECT count(*) FROM nodes"), &count)
	assert.Equal(t, count, 4, "node count mismatch")

	assert.Equal(t, len(*events), 1, "event count mismatch")
	removed := (*events)[0]
	assert.Equal(t, removed.Kind, EventRemoved, "event kind mismatch")
	assert.Equal(t, removed.OldParentID, "1", "old parent mismatch")

	var walked []string
	removed.Node.Walk(func(n Node) { walked = append(walked, n.Title) })
	assert.DeepEqual(t, walked, []string{"folder", "leaf", "sub", "deep"}, "removed subtree mismatch")

	got, err := tr.Get(last.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.Index, 0, "sibling index should close the gap")

	if err := tr.Remove(last.ID); err != nil {
		t.Fatal(errors.Wrap(err, "removing empty container"))
	}
	_, err = tr.Get(last.ID)
	assert.Equal(t, errors.Cause(err), ErrNotFound, "removed node should be gone")
}

func TestSubscribe_cancel(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	tr := NewSQLTree(db, clock.NewMock())

	var first, second int
	cancel := tr.Subscribe(func(e Event) { first++ })
	tr.Subscribe(func(e Event) { second++ })

	mustCreate(t, tr, CreateParams{ParentID: "1", Title: "a"})
	cancel()
	mustCreate(t, tr, CreateParams{ParentID: "1", Title: "b"})

	assert.Equal(t, first, 1, "cancelled listener count")
	assert.Equal(t, second, 2, "active listener count")
}

func TestSubTree(t *testing.T) {
	tr, _ := newTestTree(t)

	folder := mustCreate(t, tr, CreateParams{ParentID: "2", Title: "folder"})
	mustCreate(t, tr, CreateParams{ParentID: folder.ID, Title: "x", Content: ops.String("u")})
	mustCreate(t, tr, CreateParams{ParentID: folder.ID, Title: "y"})

	root, err := tr.SubTree("2")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(root.Children), 1, "root children mismatch")
	assert.Equal(t, len(root.Children[0].Children), 2, "folder children mismatch")
	assert.Equal(t, root.Children[0].Children[1].Title, "y", "child order mismatch")
	assert.Equal(t, root.Children[0].Children[0].Children == nil, true, "leaves have no children")
}

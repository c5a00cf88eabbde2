// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package placement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvetools/pvetemplate/internal/pve"
)

type promptMock struct {
	answers []string
	asked   []string
	said    []string
}

func (p *promptMock) Ask(query string) (string, error) {
	p.asked = append(p.asked, query)
	if len(p.answers) == 0 {
		return "", nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *promptMock) Say(message string) {
	p.said = append(p.said, message)
}

type listerMock struct {
	listImageStores func() ([]pve.Storage, error)
}

func (m listerMock) ListImageStores() ([]pve.Storage, error) {
	return m.listImageStores()
}

func threeStores() ([]pve.Storage, error) {
	return []pve.Storage{
		{Name: "local-lvm", Type: "lvmthin", Active: 1, Avail: 100 << 30},
		{Name: "ceph-pool", Type: "rbd", Active: 1, Avail: 2 << 40},
		{Name: "local", Type: "dir", Active: 1},
	}, nil
}

func TestSelectStorage(t *testing.T) {
	testCases := []struct {
		name            string
		answers         []string
		listImageStores func() ([]pve.Storage, error)
		expected        string
	}{
		{
			name:            "empty answer takes first listed backend",
			answers:         []string{""},
			listImageStores: threeStores,
			expected:        "local-lvm",
		},
		{
			name:            "numeric selection is one-based",
			answers:         []string{"2"},
			listImageStores: threeStores,
			expected:        "ceph-pool",
		},
		{
			name:            "out of range falls back to default",
			answers:         []string{"7"},
			listImageStores: threeStores,
			expected:        "local-lvm",
		},
		{
			name:            "non-numeric falls back to default",
			answers:         []string{"ceph-pool"},
			listImageStores: threeStores,
			expected:        "local-lvm",
		},
		{
			name:    "query failure asks for a name directly",
			answers: []string{"backup-store"},
			listImageStores: func() ([]pve.Storage, error) {
				return nil, errors.New("connection refused")
			},
			expected: "backup-store",
		},
		{
			name:    "no backends and empty answer takes default",
			answers: []string{""},
			listImageStores: func() ([]pve.Storage, error) {
				return nil, nil
			},
			expected: "local-lvm",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ui := &promptMock{answers: tc.answers}
			selected, err := SelectStorage(ui, listerMock{tc.listImageStores}, "local-lvm")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, selected)
		})
	}
}

func TestSelectStorageListsFreeSpace(t *testing.T) {
	ui := &promptMock{answers: []string{""}}
	_, err := SelectStorage(ui, listerMock{threeStores}, "local-lvm")
	require.NoError(t, err)
	require.Len(t, ui.said, 4)
	assert.Contains(t, ui.said[1], "local-lvm")
	assert.Contains(t, ui.said[1], "100.0 GB free")
	assert.Contains(t, ui.said[2], "2.0 TB free")
	// A backend that reports no capacity is listed without a free column.
	assert.Contains(t, ui.said[3], "(dir)")
}

type identifierMock struct {
	nextFreeIdentifier func() (int, error)
	listIdentifiers    func() ([]int, error)
}

func (m identifierMock) NextFreeIdentifier() (int, error) { return m.nextFreeIdentifier() }
func (m identifierMock) ListIdentifiers() ([]int, error)  { return m.listIdentifiers() }

func assignedIDs(ids ...int) func() ([]int, error) {
	return func() ([]int, error) { return ids, nil }
}

func TestResolveUnassignedRequest(t *testing.T) {
	ui := &promptMock{}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 100, nil },
		listIdentifiers:    assignedIDs(100, 101),
	}}

	id, err := resolver.Resolve(9001)
	require.NoError(t, err)
	assert.Equal(t, 9001, id)
	assert.Empty(t, ui.asked, "no prompt expected when the requested ID is free")
}

func TestResolveNoPreferenceTakesSuggestion(t *testing.T) {
	ui := &promptMock{}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers:    assignedIDs(100, 101),
	}}

	id, err := resolver.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, 105, id)
}

func TestResolveConflictReprompts(t *testing.T) {
	// Requested ID is assigned; the operator picks another one.
	ui := &promptMock{answers: []string{"200"}}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers:    assignedIDs(100, 101, 102),
	}}

	id, err := resolver.Resolve(100)
	require.NoError(t, err)
	assert.Equal(t, 200, id)
	require.Len(t, ui.said, 1)
	assert.Contains(t, ui.said[0], "100 is already in use")
	require.Len(t, ui.asked, 1)
	assert.Contains(t, ui.asked[0], "[105]")
}

func TestResolveRepeatedConflicts(t *testing.T) {
	// The operator insists on assigned IDs twice before giving in. The
	// loop must terminate on the first free answer, with one check per
	// attempt.
	ui := &promptMock{answers: []string{"101", "102", "350"}}
	checks := 0
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers: func() ([]int, error) {
			checks++
			return []int{100, 101, 102}, nil
		},
	}}

	id, err := resolver.Resolve(100)
	require.NoError(t, err)
	assert.Equal(t, 350, id)
	assert.Equal(t, 4, checks)
	assert.Len(t, ui.said, 3)
}

func TestResolveNeverReturnsAssignedID(t *testing.T) {
	assigned := map[int]bool{100: true, 101: true, 102: true}
	ui := &promptMock{answers: []string{"101", ""}}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers:    assignedIDs(100, 101, 102),
	}}

	id, err := resolver.Resolve(100)
	require.NoError(t, err)
	assert.False(t, assigned[id])
	assert.Equal(t, 105, id, "empty answer takes the suggested free ID")
}

func TestResolveRejectsMalformedInput(t *testing.T) {
	ui := &promptMock{answers: []string{"abc", "-5", "250"}}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers:    assignedIDs(100),
	}}

	id, err := resolver.Resolve(100)
	require.NoError(t, err)
	assert.Equal(t, 250, id)
	assert.Contains(t, ui.said[1], `"abc" is not a non-negative integer`)
	assert.Contains(t, ui.said[2], `"-5" is not a non-negative integer`)
}

func TestResolveInteractive(t *testing.T) {
	// The operator is asked up front; picking an assigned ID triggers the
	// usual conflict loop.
	ui := &promptMock{answers: []string{"100", "250"}}
	resolver := &IDResolver{Ui: ui, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers:    assignedIDs(100),
	}}

	id, err := resolver.ResolveInteractive()
	require.NoError(t, err)
	assert.Equal(t, 250, id)
	require.Len(t, ui.asked, 2)
	assert.Contains(t, ui.asked[0], "[105]")
}

func TestResolveListFailure(t *testing.T) {
	resolver := &IDResolver{Ui: &promptMock{}, Client: identifierMock{
		nextFreeIdentifier: func() (int, error) { return 105, nil },
		listIdentifiers: func() ([]int, error) {
			return nil, errors.New("permission denied")
		},
	}}

	_, err := resolver.Resolve(100)
	require.Error(t, err)
}

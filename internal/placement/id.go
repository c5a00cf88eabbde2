// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package placement

import (
	"fmt"
	"strconv"
	"strings"
)

// IdentifierClient is the slice of the compute service the resolver needs.
type IdentifierClient interface {
	NextFreeIdentifier() (int, error)
	ListIdentifiers() ([]int, error)
}

// IDResolver implements the optimistic identifier policy: propose, check
// against the live identifier list, re-prompt on conflict. The VM ID
// namespace is shared with every other actor on the cluster and there is no
// reservation API, so a resolved ID can still lose the race at creation
// time; callers re-enter Resolve when that happens.
type IDResolver struct {
	Ui     prompter
	Client IdentifierClient
}

// Resolve returns an identifier that is unassigned at the time of checking.
// requested <= 0 means no preference and takes the cluster's suggestion.
// The conflict loop is unbounded: every retry requires fresh operator
// input, which is the real bound.
func (r *IDResolver) Resolve(requested int) (int, error) {
	candidate := requested
	for {
		if candidate <= 0 {
			suggestion, err := r.Client.NextFreeIdentifier()
			if err != nil {
				return 0, err
			}
			candidate = suggestion
		}

		taken, err := r.taken(candidate)
		if err != nil {
			return 0, err
		}
		if !taken {
			return candidate, nil
		}

		r.Ui.Say(fmt.Sprintf("VM ID %d is already in use", candidate))
		candidate, err = r.promptForID()
		if err != nil {
			return 0, err
		}
	}
}

// ResolveInteractive asks the operator for an identifier first and then
// runs the usual conflict check on the answer.
func (r *IDResolver) ResolveInteractive() (int, error) {
	id, err := r.promptForID()
	if err != nil {
		return 0, err
	}
	return r.Resolve(id)
}

func (r *IDResolver) taken(id int) (bool, error) {
	ids, err := r.Client.ListIdentifiers()
	if err != nil {
		return false, err
	}
	for _, assigned := range ids {
		if assigned == id {
			return true, nil
		}
	}
	return false, nil
}

// promptForID asks the operator for an identifier, suggesting the cluster's
// next free one. Input must parse as a non-negative integer; anything else
// re-prompts.
func (r *IDResolver) promptForID() (int, error) {
	suggestion, err := r.Client.NextFreeIdentifier()
	if err != nil {
		return 0, err
	}
	for {
		answer, err := r.Ui.Ask(fmt.Sprintf("Template VM ID [%d]", suggestion))
		if err != nil {
			return 0, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return suggestion, nil
		}
		id, err := strconv.Atoi(answer)
		if err != nil || id < 0 {
			r.Ui.Say(fmt.Sprintf("%q is not a non-negative integer", answer))
			continue
		}
		return id, nil
	}
}

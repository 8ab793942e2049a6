// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"context"

	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// Social is the follow-graph actor.
type Social struct{ endpoint }

// NewSocial binds caller to the social-graph canister.
func NewSocial(caller Caller, canisterID string) *Social {
	return &Social{endpoint{caller: caller, canisterID: canisterID}}
}

// IsFollowing reports whether follower follows followee. It answers
// with a bare bool.
func (s *Social) IsFollowing(ctx context.Context, follower, followee identity.Principal) (bool, error) {
	var following bool
	if err := s.caller.Query(ctx, s.canisterID, "isFollowing", &following, follower, followee); err != nil {
		return false, err
	}
	return following, nil
}

// FollowUser makes the caller follow target.
func (s *Social) FollowUser(ctx context.Context, target identity.Principal) error {
	_, err := call[Unit](ctx, s.endpoint, "followUser", target)
	return err
}

// UnfollowUser removes the caller's follow of target.
func (s *Social) UnfollowUser(ctx context.Context, target identity.Principal) error {
	_, err := call[Unit](ctx, s.endpoint, "unfollowUser", target)
	return err
}

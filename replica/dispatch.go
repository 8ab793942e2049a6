// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"fmt"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// arguments is a method's decoded argument array.
type arguments []codec.RawMessage

func decodeArguments(data []byte) (arguments, error) {
	var args arguments
	if err := codec.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("arguments are not a CBOR array: %w", err)
	}
	return args, nil
}

// into decodes each argument into the matching target. The count must
// match exactly.
func (a arguments) into(targets ...any) error {
	if len(a) != len(targets) {
		return fmt.Errorf("expected %d arguments, got %d", len(targets), len(a))
	}
	for index, target := range targets {
		if err := codec.Unmarshal(a[index], target); err != nil {
			return fmt.Errorf("argument %d: %w", index, err)
		}
	}
	return nil
}

// handler runs one method for a verified caller. An error means the
// arguments did not fit the method; backend rejections travel inside
// the returned value.
type handler func(r *Replica, caller identity.Principal, args arguments) (any, error)

type method struct {
	// update methods change state and must arrive as calls.
	update  bool
	handler handler
}

func queryMethod(h handler) method  { return method{handler: h} }
func updateMethod(h handler) method { return method{update: true, handler: h} }

var backendMethods = map[string]method{
	"getCurrentUserProfile": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		if err := args.into(); err != nil {
			return nil, err
		}
		return r.getCurrentUserProfile(caller), nil
	}),
	"setUserProfile": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var username, bio string
		if err := args.into(&username, &bio); err != nil {
			return nil, err
		}
		return r.setUserProfile(caller, username, bio), nil
	}),
	"isUsernameAvailable": queryMethod(func(r *Replica, _ identity.Principal, args arguments) (any, error) {
		var username string
		if err := args.into(&username); err != nil {
			return nil, err
		}
		return r.isUsernameAvailable(username), nil
	}),
	"getUserProfileByUsername": queryMethod(func(r *Replica, _ identity.Principal, args arguments) (any, error) {
		var username string
		if err := args.into(&username); err != nil {
			return nil, err
		}
		return r.getUserProfileByUsername(username), nil
	}),
	"getPrincipalByUsername": queryMethod(func(r *Replica, _ identity.Principal, args arguments) (any, error) {
		var username string
		if err := args.into(&username); err != nil {
			return nil, err
		}
		return r.getPrincipalByUsername(username), nil
	}),
	"searchUsers": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var fragment string
		if err := args.into(&fragment); err != nil {
			return nil, err
		}
		return r.searchUsers(caller, fragment), nil
	}),
	"getPosts": queryMethod(func(r *Replica, _ identity.Principal, args arguments) (any, error) {
		var limit, offset uint64
		if err := args.into(&limit, &offset); err != nil {
			return nil, err
		}
		return r.getPosts(limit, offset), nil
	}),
	"createPost": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var post actor.NewPost
		if err := args.into(&post); err != nil {
			return nil, err
		}
		return r.createPost(caller, post), nil
	}),
	"likePost": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var id uint64
		if err := args.into(&id); err != nil {
			return nil, err
		}
		return r.likePost(caller, id), nil
	}),
	"addComment": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var comment actor.NewComment
		if err := args.into(&comment); err != nil {
			return nil, err
		}
		return r.addComment(caller, comment), nil
	}),
}

var socialMethods = map[string]method{
	"isFollowing": queryMethod(func(r *Replica, _ identity.Principal, args arguments) (any, error) {
		var follower, followee identity.Principal
		if err := args.into(&follower, &followee); err != nil {
			return nil, err
		}
		return r.isFollowing(follower, followee), nil
	}),
	"followUser": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var target identity.Principal
		if err := args.into(&target); err != nil {
			return nil, err
		}
		return r.followUser(caller, target), nil
	}),
	"unfollowUser": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var target identity.Principal
		if err := args.into(&target); err != nil {
			return nil, err
		}
		return r.unfollowUser(caller, target), nil
	}),
}

var messagingMethods = map[string]method{
	"getUserConversations": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		if err := args.into(); err != nil {
			return nil, err
		}
		return r.getUserConversations(caller), nil
	}),
	"getConversationMessages": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var id string
		var limit, offset uint64
		if err := args.into(&id, &limit, &offset); err != nil {
			return nil, err
		}
		return r.getConversationMessages(caller, id, limit, offset), nil
	}),
	"sendMessage": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var request actor.SendMessageRequest
		if err := args.into(&request); err != nil {
			return nil, err
		}
		return r.sendMessage(caller, request), nil
	}),
	"createConversation": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var request actor.CreateConversationRequest
		if err := args.into(&request); err != nil {
			return nil, err
		}
		return r.createConversation(caller, request), nil
	}),
	"markConversationAsRead": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var id string
		if err := args.into(&id); err != nil {
			return nil, err
		}
		return r.markConversationAsRead(caller, id), nil
	}),
	"getUnreadMessageCount": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		if err := args.into(); err != nil {
			return nil, err
		}
		return r.getUnreadMessageCount(caller), nil
	}),
	"getPrivacySettings": queryMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		if err := args.into(); err != nil {
			return nil, err
		}
		return r.getPrivacySettings(caller), nil
	}),
	"setPrivacySettings": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var settings actor.PrivacySettings
		if err := args.into(&settings); err != nil {
			return nil, err
		}
		return r.setPrivacySettings(caller, settings), nil
	}),
	"editMessage": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var id, content string
		if err := args.into(&id, &content); err != nil {
			return nil, err
		}
		return r.editMessage(caller, id, content), nil
	}),
	"deleteMessage": updateMethod(func(r *Replica, caller identity.Principal, args arguments) (any, error) {
		var id string
		if err := args.into(&id); err != nil {
			return nil, err
		}
		return r.deleteMessage(caller, id), nil
	}),
}

// methods returns the table served under canisterID.
func (r *Replica) methods(canisterID string) (map[string]method, bool) {
	switch canisterID {
	case r.canisters.Backend:
		return backendMethods, true
	case r.canisters.Social:
		return socialMethods, true
	case r.canisters.Messaging:
		return messagingMethods, true
	}
	return nil, false
}

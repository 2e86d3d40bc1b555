package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/Ignsass/chat-app/internal/uploads"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPermissionDenied       = errors.New("user is not authorized to this action")
	ErrNotChatMember          = fmt.Errorf("%w: user is not a chat member", ErrPermissionDenied)
	ErrNotGroupAdmin          = fmt.Errorf("%w: only the group administrator can do this", ErrPermissionDenied)
	ErrBusinessLogicViolation = errors.New("business logic violation")
	ErrChatWithSelf           = fmt.Errorf("%w: direct chat requires another user", ErrBusinessLogicViolation)
	ErrGroupNeedsMembers      = fmt.Errorf("%w: group chat needs at least one member besides the creator", ErrBusinessLogicViolation)
	ErrNotGroupChat           = fmt.Errorf("%w: chat is not a group chat", ErrBusinessLogicViolation)
	ErrRemoveAdmin            = fmt.Errorf("%w: the group administrator can't be removed", ErrBusinessLogicViolation)
)

const defaultGroupPic = "default-group.svg"

type ChatsUsecase struct {
	registry storage.Registry
	uploader uploads.Uploader
	log      logrus.FieldLogger
}

func NewChatsUsecase(r storage.Registry, uploader uploads.Uploader, log logrus.FieldLogger) *ChatsUsecase {
	return &ChatsUsecase{
		registry: r,
		uploader: uploader,
		log:      log,
	}
}

// AccessDirectChat returns the direct chat between the requester and
// otherUserId, creating it if it does not exist. At most one direct chat
// exists per unordered pair.
func (u *ChatsUsecase) AccessDirectChat(ctx context.Context, selfId string, otherUserId string) (chat *models.ChatWithMembers, err error) {
	if selfId == otherUserId {
		return nil, ErrChatWithSelf
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()

		existing, err := store.FindDirectChat(ctx, selfId, otherUserId)
		if err == nil {
			chat = existing
			return nil
		}
		if !errors.Is(err, storage.ErrChatNotFound) {
			return err
		}

		// Direct chats carry the peer's name at creation time
		other, err := r.GetUsersStore().GetUser(ctx, otherUserId)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		directKey := storage.DirectChatKey(selfId, otherUserId)
		created := models.Chat{
			ChatID:    uuid.NewString(),
			ChatName:  other.Username,
			DirectKey: &directKey,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err = store.CreateChat(ctx, &created); err != nil {
			return err
		}
		members := []string{selfId, otherUserId}
		if err = store.AddChatMembers(ctx, created.ChatID, members); err != nil {
			return err
		}

		u.publishChatCreated(r, &created, members)

		chat, err = store.GetChatWithMembers(ctx, created.ChatID)
		return err
	})

	// A concurrent request for the same pair may have won the insert; its
	// chat is the one to return
	if errors.Is(err, storage.ErrDirectChatExists) {
		return u.registry.GetChatsStore().FindDirectChat(ctx, selfId, otherUserId)
	}
	return chat, err
}

// FetchChats returns every chat the requester belongs to, most recently
// active first.
func (u *ChatsUsecase) FetchChats(ctx context.Context, selfId string) ([]models.ChatWithMembers, error) {
	return u.registry.GetChatsStore().GetUserChats(ctx, selfId)
}

// CreateGroupChat creates a group with the requester as administrator and
// member. At least one other member is required.
func (u *ChatsUsecase) CreateGroupChat(ctx context.Context, selfId string, name string, memberIds []string) (chat *models.ChatWithMembers, err error) {
	// The creator is always a member; repeated ids collapse to one row
	seen := map[string]bool{selfId: true}
	members := make([]string, 0, len(memberIds)+1)
	for _, id := range memberIds {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return nil, ErrGroupNeedsMembers
	}
	members = append(members, selfId)

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()

		now := time.Now().UTC()
		admin := selfId
		created := models.Chat{
			ChatID:     uuid.NewString(),
			IsGroup:    true,
			ChatName:   name,
			GroupPic:   defaultGroupPic,
			GroupAdmin: &admin,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := store.CreateChat(ctx, &created); err != nil {
			return err
		}
		if err := store.AddChatMembers(ctx, created.ChatID, members); err != nil {
			return err
		}

		u.publishChatCreated(r, &created, members)

		var err error
		chat, err = store.GetChatWithMembers(ctx, created.ChatID)
		return err
	})
	return chat, err
}

// requireGroupAdmin loads the chat and rejects unless the requester is its
// administrator.
func (u *ChatsUsecase) requireGroupAdmin(ctx context.Context, store *storage.ChatsStorage, chatId string, selfId string) (*models.ChatWithMembers, error) {
	chat, err := store.GetChatWithMembers(ctx, chatId)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, ErrNotGroupChat
	}
	if chat.GroupAdmin == nil || *chat.GroupAdmin != selfId {
		return nil, ErrNotGroupAdmin
	}
	return chat, nil
}

func (u *ChatsUsecase) RenameGroup(ctx context.Context, selfId string, chatId string, name string) (chat *models.ChatWithMembers, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		if _, err := u.requireGroupAdmin(ctx, store, chatId, selfId); err != nil {
			return err
		}
		if err := store.RenameChat(ctx, chatId, name); err != nil {
			return err
		}
		var err error
		chat, err = store.GetChatWithMembers(ctx, chatId)
		return err
	})
	return chat, err
}

func (u *ChatsUsecase) UpdateGroupPic(ctx context.Context, selfId string, chatId string, pic []byte, contentType string) (chat *models.ChatWithMembers, err error) {
	groupPic := defaultGroupPic
	if len(pic) > 0 {
		groupPic, err = u.uploader.Upload(ctx, pic, contentType, uploads.FolderGroupPics)
		if err != nil {
			return nil, fmt.Errorf("can't upload group picture: %w", err)
		}
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		if _, err := u.requireGroupAdmin(ctx, store, chatId, selfId); err != nil {
			return err
		}
		if err := store.UpdateGroupPic(ctx, chatId, groupPic); err != nil {
			return err
		}
		var err error
		chat, err = store.GetChatWithMembers(ctx, chatId)
		return err
	})
	return chat, err
}

func (u *ChatsUsecase) AddToGroup(ctx context.Context, selfId string, chatId string, userId string) (chat *models.ChatWithMembers, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		if _, err := u.requireGroupAdmin(ctx, store, chatId, selfId); err != nil {
			return err
		}
		if err := store.AddChatMembers(ctx, chatId, []string{userId}); err != nil {
			return err
		}

		u.publishMemberChange(r, chatId, userId, true)

		var err error
		chat, err = store.GetChatWithMembers(ctx, chatId)
		return err
	})
	return chat, err
}

// RemoveFromGroup removes a member. Allowed for the administrator, and for
// any member removing themselves (leaving). The administrator can't be
// removed; a rejected call changes nothing and broadcasts nothing.
func (u *ChatsUsecase) RemoveFromGroup(ctx context.Context, selfId string, chatId string, userId string) (chat *models.ChatWithMembers, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()

		full, err := store.GetChatWithMembers(ctx, chatId)
		if err != nil {
			return err
		}
		if !full.IsGroup {
			return ErrNotGroupChat
		}
		if full.GroupAdmin != nil && *full.GroupAdmin == userId {
			return ErrRemoveAdmin
		}
		isAdmin := full.GroupAdmin != nil && *full.GroupAdmin == selfId
		if !isAdmin && selfId != userId {
			return ErrNotGroupAdmin
		}

		if err := store.DeleteChatMembers(ctx, chatId, []string{userId}); err != nil {
			return err
		}

		u.publishMemberChange(r, chatId, userId, false)

		chat, err = store.GetChatWithMembers(ctx, chatId)
		return err
	})
	return chat, err
}

// DeleteChat removes a chat and its messages. Direct chats may be deleted
// by either member; groups only by their administrator.
func (u *ChatsUsecase) DeleteChat(ctx context.Context, selfId string, chatId string) error {
	return u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()

		full, err := store.GetChatWithMembers(ctx, chatId)
		if err != nil {
			return err
		}

		if full.IsGroup {
			if full.GroupAdmin == nil || *full.GroupAdmin != selfId {
				return ErrNotGroupAdmin
			}
		} else if !full.HasMember(selfId) {
			return ErrNotChatMember
		}

		if err := store.DeleteChat(ctx, chatId); err != nil {
			return err
		}

		if err := r.GetUpdatesStore().ChatDeleted(&models.ChatDeleted{
			UpdateMeta: models.UpdateMeta{
				Timestamp: time.Now().UTC(),
				Audience:  memberIds(full.Members),
			},
			ChatID: chatId,
		}); err != nil {
			u.log.WithError(err).Warning("can't publish chat-deleted update")
		}
		return nil
	})
}

func (u *ChatsUsecase) publishChatCreated(r storage.Registry, chat *models.Chat, members []string) {
	err := r.GetUpdatesStore().ChatCreated(&models.ChatCreated{
		UpdateMeta: models.UpdateMeta{
			Timestamp: chat.CreatedAt,
			Audience:  members,
		},
		ChatID:   chat.ChatID,
		IsGroup:  chat.IsGroup,
		Members:  members,
		ChatName: chat.ChatName,
	})
	if err != nil {
		u.log.WithError(err).Warning("can't publish chat-created update")
	}
}

func (u *ChatsUsecase) publishMemberChange(r storage.Registry, chatId string, userId string, added bool) {
	meta := models.UpdateMeta{Timestamp: time.Now().UTC()}
	var err error
	if added {
		err = r.GetUpdatesStore().MemberAdded(&models.MemberAdded{
			UpdateMeta: meta,
			ChatID:     chatId,
			UserID:     userId,
		})
	} else {
		err = r.GetUpdatesStore().MemberRemoved(&models.MemberRemoved{
			UpdateMeta: meta,
			ChatID:     chatId,
			UserID:     userId,
		})
	}
	if err != nil {
		u.log.WithError(err).Warning("can't publish member update")
	}
}

func memberIds(members []models.UserSummary) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

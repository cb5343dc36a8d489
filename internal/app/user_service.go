package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"savora/internal/model"
	"savora/internal/repository"
)

const msgUserNotFound = "User not found"

type UserService struct {
	users   repository.UserStore
	recipes repository.RecipeStore
	cache   RecipeCache
	images  *ImageService
	log     logrus.FieldLogger
}

type ProfileUpdateInput struct {
	Bio *string `validate:"omitempty,max=1000"`
}

func NewUserService(users repository.UserStore, recipes repository.RecipeStore, cache RecipeCache, images *ImageService, log logrus.FieldLogger) *UserService {
	return &UserService{
		users:   users,
		recipes: recipes,
		cache:   cache,
		images:  images,
		log:     log,
	}
}

func (s *UserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrNotFound, msgUserNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateMe(ctx context.Context, userID string, input ProfileUpdateInput, image *ImageUpload) (*model.User, error) {
	current, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		input.Bio = &bio
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	imagePath, err := s.images.Save(ctx, image)
	if err != nil {
		return nil, err
	}

	patch := model.UserPatch{Bio: input.Bio}
	if imagePath != "" {
		patch.ProfileImage = &imagePath
	}
	if patch.Bio == nil && patch.ProfileImage == nil {
		return current, nil
	}

	updated, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		s.images.Discard(ctx, "profile update failed", imagePath)
		return nil, err
	}
	if updated == nil {
		s.images.Discard(ctx, "profile update failed", imagePath)
		return nil, newError(ErrNotFound, msgUserNotFound)
	}

	if imagePath != "" && current.ProfileImage != "" && current.ProfileImage != imagePath {
		s.images.Discard(ctx, "profile image replaced", current.ProfileImage)
	}
	return updated, nil
}

// DeleteMe removes the account and then every recipe it owns. The two steps
// are not atomic: if the recipe delete fails the account is already gone and
// the error is returned so the caller sees the partial failure.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	owned, err := s.recipes.Find(ctx, repository.RecipeFilter{CreatedBy: userID}, repository.SortNewest, 0, 0)
	if err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return newError(ErrNotFound, msgUserNotFound)
	}

	removed, err := s.recipes.DeleteByOwner(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("cascade delete of recipes failed")
		return fmt.Errorf("delete recipes of user %s failed: %w", userID, err)
	}

	ids := make([]string, 0, len(owned))
	images := []string{user.ProfileImage}
	for _, r := range owned {
		ids = append(ids, r.ID)
		images = append(images, r.Image)
	}
	if s.cache != nil && len(ids) > 0 {
		if err := s.cache.DeleteRecipes(ctx, ids...); err != nil {
			s.log.WithError(err).Warn("recipe cache eviction failed")
		}
	}
	s.images.Discard(ctx, "user deleted", images...)

	s.log.WithFields(logrus.Fields{"user_id": userID, "recipes_deleted": removed}).Info("user deleted")
	return nil
}

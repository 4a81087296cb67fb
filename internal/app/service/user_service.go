package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
	"qna_catalog/internal/domain/repository"
)

type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	txr      TxRunner
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, txr TxRunner) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo, txr: txr}
}

// ReplaceUserRoles makes the user's role set equal exactly the named roles
// that exist. Unknown names are skipped with a logged anomaly, never a hard
// failure. Clear and re-insert happen in one transaction; the inserts
// themselves tolerate a raced duplicate, so the call is idempotent on its
// end state and safe to retry. An empty (or fully unresolvable) desired set
// falls back to the single default role instead of leaving the user
// roleless.
func (s *UserService) ReplaceUserRoles(ctx context.Context, userID string, roleNames []string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}

	if len(roleNames) == 0 {
		log.Printf("No roles requested for user %s, falling back to %q", userID, model.RoleUser)
		roleNames = []string{model.RoleUser}
	}

	roles := make([]model.Role, 0, len(roleNames))
	requested := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		if requested[name] {
			continue
		}
		requested[name] = true

		role, err := s.roleRepo.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				log.Printf("WARN: role %q does not exist, skipping", name)
				continue
			}
			return err
		}
		roles = append(roles, *role)
	}

	if len(roles) == 0 {
		defaultRole, err := s.roleRepo.FindByName(ctx, model.RoleUser)
		if err != nil {
			return err
		}
		roles = append(roles, *defaultRole)
	}

	return s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.roleRepo.ClearForUser(ctx, tx, userID); err != nil {
			return err
		}
		for _, role := range roles {
			if err := s.roleRepo.AddForUser(ctx, tx, userID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *UserService) GetUserWithRoles(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roleRepo.ListNamesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	user.HashedPassword = ""
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		roles, err := s.roleRepo.ListNamesForUser(ctx, users[i].ID)
		if err != nil {
			log.Printf("WARN: roles of user %s not loaded: %v", users[i].ID, err)
			continue
		}
		users[i].Roles = roles
		users[i].HashedPassword = ""
	}
	return users, nil
}

// DeleteUser removes the account and its role edges in one transaction.
// The store cascades user_roles on its own; the explicit clear keeps the
// removal visible in the same scope as the user delete.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	err := s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.roleRepo.ClearForUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	log.Printf("Deleted user %s", userID)
	return nil
}

type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	Firstname *string `json:"firstname,omitempty"`
	Lastname  *string `json:"lastname,omitempty"`
}

// UpdateUser patches profile fields after checking username and email
// uniqueness against other accounts.
func (s *UserService) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		existing, err := s.userRepo.FindByUsername(ctx, *req.Username)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, common.Errorf("username %q already taken: %w", *req.Username, common.ErrConflict)
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		existing, err := s.userRepo.FindByEmail(ctx, *req.Email)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, common.Errorf("email %q already taken: %w", *req.Email, common.ErrConflict)
		}
		user.Email = *req.Email
	}
	if req.Firstname != nil {
		user.Firstname = req.Firstname
	}
	if req.Lastname != nil {
		user.Lastname = req.Lastname
	}

	err = s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.userRepo.Update(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUserWithRoles(ctx, userID)
}

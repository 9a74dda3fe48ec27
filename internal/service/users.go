package service

import (
	"github.com/chatterbox/chatserver/internal/authcrypto"
	"github.com/chatterbox/chatserver/internal/dal"
	"github.com/chatterbox/chatserver/internal/model"
	"github.com/kat-co/vala"
)

// UserService implements the register/login/profile rules of §4.D.
type UserService struct {
	users dal.UserDAO
}

func NewUserService(users dal.UserDAO) *UserService {
	return &UserService{users: users}
}

// LoginResult is Login's success payload: the user plus whether the token
// minted for them should carry the admin role tag.
type LoginResult struct {
	User    model.User
	IsAdmin bool
}

// Register hashes the password before calling the DAL, exactly as §4.D
// requires, and validates required-field shape with vala before ever
// touching storage.
func (s *UserService) Register(name, email, password string) Result[model.User] {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(name, "name"),
		vala.StringNotEmpty(email, "email"),
		vala.StringNotEmpty(password, "password"),
	).Check(); err != nil {
		return Fail[model.User](CodeBadRequest, err.Error())
	}

	hash, err := authcrypto.Hash(password)
	if err != nil {
		return Fail[model.User](CodeInternalError, "internal error")
	}

	user, err := s.users.CreateUser(name, email, hash, model.RoleNormal)
	if err != nil {
		code, msg := translateDALError(err, "user not found")
		return Fail[model.User](code, msg)
	}
	return Ok(user)
}

func (s *UserService) Login(email, password string) Result[LoginResult] {
	user, err := s.users.Authenticate(email, password)
	if err != nil {
		code, msg := translateDALError(err, "invalid credentials")
		if code == CodeNotFound {
			code, msg = CodeUnauthorized, "invalid credentials"
		}
		return Fail[LoginResult](code, msg)
	}
	return Ok(LoginResult{User: user, IsAdmin: user.Role == model.RoleAdmin})
}

func (s *UserService) ChangePassword(email, oldPassword, newPassword string) Result[struct{}] {
	if err := s.users.ChangePassword(email, oldPassword, newPassword); err != nil {
		code, msg := translateDALError(err, "user not found")
		return Fail[struct{}](code, msg)
	}
	return Ok(struct{}{})
}

func (s *UserService) ChangeDisplayName(userID int64, name string) Result[model.User] {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(name, "name")).Check(); err != nil {
		return Fail[model.User](CodeBadRequest, err.Error())
	}

	user, err := s.users.ChangeDisplayName(userID, name)
	if err != nil {
		code, msg := translateDALError(err, "user not found")
		return Fail[model.User](code, msg)
	}
	return Ok(user)
}

func (s *UserService) GetUserByID(userID int64) Result[model.User] {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		code, msg := translateDALError(err, "user not found")
		return Fail[model.User](code, msg)
	}
	return Ok(user)
}

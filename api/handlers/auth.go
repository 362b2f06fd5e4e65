package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const minPasswordLength = 8

var errInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when no user matches, so a missing username
// costs as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gs-portal-dummy-password"), bcrypt.DefaultCost)

// Auth exposes registration, login and the caller's own profile.
type Auth struct {
	Deps
	Tokens *api.TokenIssuer
	// Guard is used to evict the presented token on logout. It may be nil.
	Guard *api.MiddlewareDB
}

// RevokeAfter is the tokensValidAfter value that invalidates every token
// issued up to now while keeping tokens minted afterwards valid.
func RevokeAfter(now time.Time) time.Time {
	return now.UTC().Truncate(time.Second).Add(time.Second)
}

func validateRegistration(req *models.RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.NIC = strings.ToUpper(strings.TrimSpace(req.NIC))
	req.GSID = strings.TrimSpace(req.GSID)
	if req.Role == "" {
		req.Role = workflow.RoleCitizen
	}

	switch {
	case len(req.Username) < 3:
		return invalid("username must be at least 3 characters")
	case len(req.Password) < minPasswordLength:
		return invalid("password must be at least %d characters", minPasswordLength)
	case !req.Role.Valid():
		return invalid("role must be citizen or gs")
	case strings.TrimSpace(req.FullName) == "":
		return invalid("fullName is required")
	case req.NIC == "":
		return invalid("nic is required")
	case req.Role == workflow.RoleOfficer && req.GSID == "":
		return invalid("gsId is required for officers")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid("email is not valid")
	}
	if req.Role != workflow.RoleOfficer {
		req.GSID = ""
		req.Division = ""
	}
	return nil
}

// duplicateField names the unique field an existing user shares with req.
func duplicateField(existing *models.User, req models.RegisterRequest) string {
	switch {
	case existing.Username == req.Username:
		return "username"
	case existing.Email == req.Email:
		return "email"
	case existing.NIC == req.NIC:
		return "nic"
	default:
		return "gsId"
	}
}

// RegisterHandler creates an account. Citizens are active immediately and
// receive a token; officers wait in pending until an administrator approves them.
func (a Auth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if err := validateRegistration(&req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	or := bson.A{bson.M{"username": req.Username}, bson.M{"email": req.Email}, bson.M{"nic": req.NIC}}
	if req.GSID != "" {
		or = append(or, bson.M{"gsId": req.GSID})
	}
	existing, err := a.Users.FindOne(ctx, bson.M{"$or": or})
	switch {
	case err == nil:
		config.ErrorStatus(fmt.Sprintf("%s is already registered", duplicateField(existing, req)), http.StatusConflict, w, nil)
		return
	case !errors.Is(err, databases.ErrNotFound):
		config.ErrorStatus("failed to check existing accounts", http.StatusInternalServerError, w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := a.now()
	user := models.User{
		ID:               primitive.NewObjectID(),
		Username:         req.Username,
		PasswordHash:     string(hash),
		Role:             req.Role,
		FullName:         strings.TrimSpace(req.FullName),
		Email:            req.Email,
		PhoneNumber:      strings.TrimSpace(req.PhoneNumber),
		NIC:              req.NIC,
		GSID:             req.GSID,
		Division:         req.Division,
		AccountStatus:    models.AccountActive,
		Address:          req.Address,
		TokensValidAfter: now.Truncate(time.Second),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if user.Role == workflow.RoleOfficer {
		user.AccountStatus = models.AccountPending
	}

	if err := a.Users.InsertOne(ctx, &user); err != nil {
		writeError(w, "username, email, nic or gsId is already registered", err)
		return
	}
	zap.S().Infow("user registered", "username", user.Username, "role", user.Role, "status", user.AccountStatus)

	if user.AccountStatus != models.AccountActive {
		writeJSON(w, http.StatusCreated, models.LoginResponse{
			AccountStatus: user.AccountStatus,
			Message:       "registration received, an administrator must approve the account before you can sign in",
			User:          &user,
		})
		return
	}
	a.writeSession(w, http.StatusCreated, &user)
}

// LoginHandler checks credentials and issues an access token.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"username": strings.TrimSpace(req.Username)}
	if req.Role != "" {
		filter["role"] = req.Role
	}
	user, err := a.Users.FindOne(ctx, filter)
	if err != nil && !errors.Is(err, databases.ErrNotFound) {
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		zap.S().Infow("failed login", "username", req.Username)
		config.ErrorStatus(errInvalidCredentials.Error(), http.StatusUnauthorized, w, nil)
		return
	}

	if user.AccountStatus != models.AccountActive {
		writeJSON(w, http.StatusForbidden, models.LoginResponse{
			AccountStatus: user.AccountStatus,
			Message:       fmt.Sprintf("account is %s", user.AccountStatus),
		})
		return
	}
	a.writeSession(w, http.StatusOK, user)
}

func (a Auth) writeSession(w http.ResponseWriter, code int, user *models.User) {
	token, exp, err := a.Tokens.Issue(user.ID.Hex(), user.TokensValidAfter)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, code, models.LoginResponse{
		Token:         &token,
		ExpiresAt:     &exp,
		AccountStatus: user.AccountStatus,
		User:          user,
	})
}

// ProfileHandler returns the caller's account.
func (a Auth) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.Users.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		writeError(w, "failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler edits the caller's contact details.
func (a Auth) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}

	set := bson.M{"updatedAt": a.now()}
	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			writeError(w, "", invalid("fullName cannot be empty"))
			return
		}
		set["fullName"] = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, "", invalid("email is not valid"))
			return
		}
		set["email"] = email
	}
	if req.PhoneNumber != nil {
		set["phoneNumber"] = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Address != nil {
		set["address"] = *req.Address
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.Users.FindOneAndUpdate(ctx, bson.M{"_id": caller.ID}, bson.M{"$set": set})
	if err != nil {
		writeError(w, "email is already registered", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePasswordHandler replaces the password and revokes every existing
// session. The response carries a fresh token.
func (a Auth) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.PasswordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, "", invalid("password must be at least %d characters", minPasswordLength))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.Users.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		config.ErrorStatus("current password is incorrect", http.StatusUnauthorized, w, nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := a.now()
	updated, err := a.Users.FindOneAndUpdate(ctx, bson.M{"_id": caller.ID}, bson.M{"$set": bson.M{
		"passwordHash":     string(hash),
		"tokensValidAfter": RevokeAfter(now),
		"updatedAt":        now,
	}})
	if err != nil {
		writeError(w, "failed to update password", err)
		return
	}
	a.revoke(r)
	zap.S().Infow("password changed", "user", caller.ID.Hex())
	a.writeSession(w, http.StatusOK, updated)
}

// LogoutHandler revokes every token the caller holds.
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := a.now()
	_, err := a.Users.UpdateOne(ctx, bson.M{"_id": caller.ID}, bson.M{"$set": bson.M{
		"tokensValidAfter": RevokeAfter(now),
		"updatedAt":        now,
	}})
	if err != nil {
		writeError(w, "failed to log out", err)
		return
	}
	a.revoke(r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (a Auth) revoke(r *http.Request) {
	if a.Guard == nil {
		return
	}
	if err := a.Guard.Revoke(r); err != nil {
		zap.S().Debugw("failed to evict token from cache", "error", err)
	}
}

package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinicdesk/pkg/phone"
)

var (
	ErrDuplicatePhone = errors.New("the same phone number appears more than once")
	ErrTooFewDoctors  = errors.New("a medical center needs at least 2 doctors")
)

type Service struct {
	repo       Repository
	bcryptCost int
	dummyHash  []byte
	newToken   func() string
}

func NewService(repo Repository, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the phone is unknown so both failure paths cost
	// one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("clinicdesk-no-such-user"), bcryptCost)
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		newToken:   uuid.NewString,
	}
}

// ResolveSession maps a raw session token to its hydrated identity. An empty
// or unknown token yields (nil, nil). Store failures are returned as errors.
func (s *Service) ResolveSession(ctx context.Context, token string) (*AppUser, error) {
	if token == "" {
		return nil, nil
	}
	u, err := s.repo.FindBySessionToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return u, nil
}

// Login checks the credentials, rotates the session token and returns the
// hydrated user together with the new token.
func (s *Service) Login(ctx context.Context, rawPhone, password string) (*AppUser, string, error) {
	p := phone.Sanitize(rawPhone)

	u, err := s.repo.FindByPhone(ctx, p)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token := s.newToken()
	if err := s.repo.RotateSessionToken(ctx, u.ID, token); err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	au, err := s.repo.FindByID(ctx, u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	return au, token, nil
}

// Logout invalidates token server-side. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.ClearSessionToken(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Service) SignupClinic(ctx context.Context, req *ClinicSignupRequest) (*SignupResult, error) {
	owner, err := s.newUser(req.Name, req.NameAr, req.Phone, req.Specialization, req.Password, SystemRoleCustomer)
	if err != nil {
		return nil, err
	}

	acct := &ClinicAccount{
		Owner: owner,
		Clinic: NewFacility{
			Name:   strings.TrimSpace(req.ClinicName),
			NameAr: strings.TrimSpace(req.ClinicNameAr),
			Status: StatusPending,
		},
	}
	if err := s.repo.CreateClinicAccount(ctx, acct); err != nil {
		return nil, wrapSignup(err)
	}
	return signupResult(owner, acct.Clinic.ID), nil
}

func (s *Service) SignupMedicalCenter(ctx context.Context, req *CenterSignupRequest) (*SignupResult, error) {
	if len(req.Doctors) < 2 {
		return nil, ErrTooFewDoctors
	}

	seen := map[string]bool{phone.Sanitize(req.Phone): true}
	for _, d := range req.Doctors {
		p := phone.Sanitize(d.Phone)
		if seen[p] {
			return nil, ErrDuplicatePhone
		}
		seen[p] = true
	}

	owner, err := s.newUser(req.Name, req.NameAr, req.Phone, req.Specialization, req.Password, SystemRoleCustomer)
	if err != nil {
		return nil, err
	}

	acct := &CenterAccount{
		Owner: owner,
		Center: NewFacility{
			Name:   strings.TrimSpace(req.CenterName),
			NameAr: strings.TrimSpace(req.CenterNameAr),
			Status: StatusPending,
		},
	}
	for _, d := range req.Doctors {
		doc, err := s.newUser(d.Name, d.NameAr, d.Phone, d.Specialization, d.Password, SystemRoleCustomer)
		if err != nil {
			return nil, err
		}
		acct.Doctors = append(acct.Doctors, doc)
	}

	if err := s.repo.CreateCenterAccount(ctx, acct); err != nil {
		return nil, wrapSignup(err)
	}
	return signupResult(owner, acct.Center.ID), nil
}

// CreateSystemUser creates a platform operator with no memberships.
func (s *Service) CreateSystemUser(ctx context.Context, name, rawPhone, password string, role SystemRole) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid system role %q", role)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if !phone.Valid(rawPhone) {
		return nil, fmt.Errorf("invalid phone number %q", rawPhone)
	}
	u, err := s.newUser(name, name, rawPhone, "", password, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, wrapSignup(err)
	}
	return u, nil
}

func (s *Service) newUser(name, nameAr, rawPhone, specialization, password string, role SystemRole) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		NameEn:       strings.TrimSpace(name),
		NameAr:       strings.TrimSpace(nameAr),
		PhoneNumber:  phone.Sanitize(rawPhone),
		PasswordHash: string(hash),
		SystemRole:   role,
		Status:       StatusActive,
	}
	if specialization != "" {
		u.Specialization = &specialization
	}
	return u, nil
}

func wrapSignup(err error) error {
	if errors.Is(err, ErrPhoneTaken) {
		return err
	}
	return fmt.Errorf("signup: %w", err)
}

func signupResult(owner *User, facilityID uuid.UUID) *SignupResult {
	return &SignupResult{
		UserID:     owner.ID.String(),
		FacilityID: facilityID.String(),
		Redirect:   "/login?phone=" + url.QueryEscape(owner.PhoneNumber),
	}
}

package provision

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
)

// Repositories are the stores a provisioning operation writes to, bound to one transaction.
type Repositories struct {
	Accounts account.Repository
	Profiles profile.Repository
}

// Transactor runs fn inside one atomic unit of work.
// Everything fn wrote is rolled back when it returns an error.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// DeleteForm is the single field form sent to delete an entity.
type DeleteForm struct {
	ID string `json:"id" form:"id" query:"id"`
}

// descriptor holds what differs between profile kinds.
// dependents are the other listings that render profiles of the kind, or rows cascading from them.
type descriptor struct {
	role       account.Role
	listPath   string
	dependents []string
}

var descriptors = map[profile.Kind]descriptor{
	profile.KindTeacher: {
		role:       account.RoleTeacher,
		listPath:   core.ListTeachersPath,
		dependents: []string{core.ListSubjectsPath, core.ListClassesPath, core.ListLessonsPath, core.ListExamsPath},
	},
	profile.KindStudent: {
		role:       account.RoleStudent,
		listPath:   core.ListStudentsPath,
		dependents: []string{core.ListParentsPath},
	},
	profile.KindParent: {role: account.RoleParent, listPath: core.ListParentsPath},
}

func (d descriptor) paths() []string {
	return append([]string{d.listPath}, d.dependents...)
}

// ListPath returns the listing route refreshed after kind is provisioned.
func ListPath(kind profile.Kind) string {
	return descriptors[kind].listPath
}

// InvalidatedPaths returns every listing route refreshed after kind is provisioned.
func InvalidatedPaths(kind profile.Kind) []string {
	return descriptors[kind].paths()
}

// RoleOf returns the Account role given to profiles of kind.
func RoleOf(kind profile.Kind) account.Role {
	return descriptors[kind].role
}

var nowFunc = time.Now

// Service creates, updates and deletes an Account together with its Profile.
type Service struct {
	tx          Transactor
	invalidator core.Invalidator
	mailSvc     core.EmailService
	logger      core.Logger
}

// NewService returns a Service. mailSvc may be nil, in which case no notice is sent.
func NewService(tx Transactor, invalidator core.Invalidator, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		tx:          tx,
		invalidator: invalidator,
		mailSvc:     mailSvc,
		logger:      logger,
	}
}

// Create inserts the Account then the Profile keyed by the Account ID.
func (svc *Service) Create(ctx context.Context, in profile.Input) core.Result {
	const op = "Create"
	kind := in.Kind()
	desc, ok := descriptors[kind]
	if !ok {
		return svc.fail(op, kind, KindStoreFailure, errors.Errorf("unknown profile kind %q", kind))
	}

	creds := in.Credentials()
	var hash []byte
	if creds.Password != "" {
		var err error
		if hash, err = account.HashPassword(creds.Password, account.PasswordCost); err != nil {
			return svc.fail(op, kind, KindCredential, err)
		}
	}

	now := nowFunc().UTC()
	acc := account.Account{
		Username:     creds.Username,
		Email:        core.NullString(creds.Email),
		PasswordHash: hash,
		Role:         desc.role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acc.VerifiedAt.SetValid(now)

	err := svc.tx.WithinTx(ctx, func(repos Repositories) error {
		created, err := repos.Accounts.CreateAccount(ctx, acc)
		if err != nil {
			return errors.Wrap(err, "creating account")
		}
		if err = repos.Profiles.CreateProfile(ctx, in.Profile(created.ID)); err != nil {
			return errors.Wrap(err, "creating profile")
		}
		acc = created
		return nil
	})
	if err != nil {
		return svc.fail(op, kind, KindStoreFailure, err)
	}

	svc.invalidate(ctx, desc.paths()...)
	svc.sendAccountCreatedMail(acc, in)
	return core.Succeeded
}

// Update rewrites the Account credentials and every Profile field.
// An empty password keeps the stored hash.
func (svc *Service) Update(ctx context.Context, in profile.Input) core.Result {
	const op = "Update"
	kind := in.Kind()
	desc, ok := descriptors[kind]
	if !ok {
		return svc.fail(op, kind, KindStoreFailure, errors.Errorf("unknown profile kind %q", kind))
	}

	id := core.CleanString(in.Identifier())
	if id == "" {
		return svc.fail(op, kind, KindMissingIdentifier, ErrMissingIdentifier)
	}

	creds := in.Credentials()
	upd := account.Update{
		ID:        id,
		Username:  creds.Username,
		Email:     core.NullString(creds.Email),
		UpdatedAt: nowFunc().UTC(),
	}
	if creds.Password != "" {
		hash, err := account.HashPassword(creds.Password, account.PasswordCost)
		if err != nil {
			return svc.fail(op, kind, KindCredential, err)
		}
		upd.PasswordHash = hash
	}

	err := svc.tx.WithinTx(ctx, func(repos Repositories) error {
		acc, err := repos.Accounts.GetAccount(ctx, account.GetFilter{ID: id})
		if err != nil {
			return errors.Wrap(err, "getting account")
		}
		if acc.Role != desc.role {
			return errors.Wrapf(account.ErrNotFound, "%s account %s", desc.role, id)
		}
		if _, err = repos.Accounts.UpdateAccount(ctx, upd); err != nil {
			return errors.Wrap(err, "updating account")
		}
		return errors.Wrap(repos.Profiles.UpdateProfile(ctx, in.Profile(id)), "updating profile")
	})
	if err != nil {
		return svc.fail(op, kind, KindStoreFailure, err)
	}

	svc.invalidate(ctx, desc.paths()...)
	return core.Succeeded
}

// Delete removes the Profile first, then its Account.
func (svc *Service) Delete(ctx context.Context, kind profile.Kind, form DeleteForm) core.Result {
	const op = "Delete"
	desc, ok := descriptors[kind]
	if !ok {
		return svc.fail(op, kind, KindStoreFailure, errors.Errorf("unknown profile kind %q", kind))
	}

	id := core.CleanString(form.ID)
	if id == "" {
		return svc.fail(op, kind, KindMissingIdentifier, ErrMissingIdentifier)
	}

	err := svc.tx.WithinTx(ctx, func(repos Repositories) error {
		if err := repos.Profiles.DeleteProfile(ctx, kind, id); err != nil {
			return errors.Wrap(err, "deleting profile")
		}
		return errors.Wrap(repos.Accounts.DeleteAccount(ctx, id), "deleting account")
	})
	if err != nil {
		return svc.fail(op, kind, KindStoreFailure, err)
	}

	svc.invalidate(ctx, desc.paths()...)
	return core.Succeeded
}

func (svc *Service) fail(op string, kind profile.Kind, errKind ErrorKind, err error) core.Result {
	pErr := &Error{Kind: errKind, Op: op, Entity: kind, Err: err}
	svc.logger.Error(pErr.Error(), pErr)
	return core.Failed
}

// invalidate failures are logged only: the write is already committed.
func (svc *Service) invalidate(ctx context.Context, paths ...string) {
	if svc.invalidator == nil {
		return
	}
	if err := svc.invalidator.Invalidate(ctx, paths...); err != nil {
		svc.logger.Warn(fmt.Sprintf("provision: invalidating %v: %v", paths, err), err)
	}
}

type accountCreatedData struct {
	Name     string
	Username string
	Role     account.Role
}

func (svc *Service) sendAccountCreatedMail(acc account.Account, in profile.Input) {
	if svc.mailSvc == nil || !acc.Email.Valid {
		return
	}
	name := acc.Username
	if base, ok := baseOf(in.Profile(acc.ID)); ok {
		name = base.Name + " " + base.Surname
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: acc.Email.String}},
		Subject:      "Your account has been created",
		TemplateName: "account_created",
		TemplateData: accountCreatedData{Name: name, Username: acc.Username, Role: acc.Role},
	})
}

func baseOf(p profile.Profile) (profile.Base, bool) {
	switch v := p.(type) {
	case profile.Teacher:
		return v.Base, true
	case profile.Student:
		return v.Base, true
	case profile.Parent:
		return v.Base, true
	}
	return profile.Base{}, false
}

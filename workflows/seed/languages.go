package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/modules"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/workflow"
)

const (
	modelLang   = "ir.lang"
	modelUser   = "res.user"
	modelGroup  = "res.group"
	modelAction = "ir.action"
)

// Languages makes the demo language translatable, reloads the freshly
// activated modules so their translations are loaded, and gives every
// translatable language a demo user.
type Languages struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Driver      *modules.Driver
	Activate    *Activate
	Company     *Company

	Demo config.DemoConfig `config:"demo"`

	_ *Production
}

func (a *Languages) Init() error {
	return nil
}

func (a *Languages) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		svc := a.Provisioner.Service()
		langs := bos.Model(svc, modelLang)
		ids, err := langs.Find(ctx, bos.Where("code", bos.Eq, a.Demo.Language))
		if err != nil {
			return err
		}
		if err := langs.Write(ctx, ids, bos.Record{"translatable": true}); err != nil {
			return err
		}

		if newly := a.Activate.Activation().ToActivate; len(newly) > 0 {
			a.StatusLine.Setf("reloading %d modules", len(newly))
			if err := a.Driver.Upgrade(ctx, newly); err != nil {
				return err
			}
		}

		menu, err := a.Provisioner.FindOne(ctx, modelAction, bos.Where("usage", bos.Eq, "menu"))
		if err != nil && !errors.Is(err, bos.ErrNotFound) {
			return err
		}
		groups, err := bos.Model(svc, modelGroup).Find(ctx, bos.Where("name", bos.NotILike, "%Admin%"))
		if err != nil {
			return err
		}

		translatable, err := langs.Browse(ctx, bos.Where("translatable", bos.Eq, true), "code", "name")
		if err != nil {
			return err
		}
		users := 0
		for _, lang := range translatable {
			name, login, ok := demoUser(lang.String("code"), lang.String("name"))
			if !ok {
				continue
			}
			rec := bos.Record{
				"name":     name,
				"login":    login,
				"password": a.Demo.Password,
				"groups":   bos.Add(groups),
				"language": lang.ID(),
			}
			if menu != 0 {
				rec["menu"] = menu
			}
			if company := a.Company.ID(); company != 0 {
				rec["company"] = company
				rec["main_company"] = company
			}
			if err := a.upsertUser(ctx, rec); err != nil {
				return err
			}
			users++
		}
		a.StatusLine.Setf("%d demo users", users)
		return nil
	})
}

func (a *Languages) upsertUser(ctx context.Context, rec bos.Record) error {
	users := bos.Model(a.Provisioner.Service(), modelUser)
	login := rec.String("login")
	ids, err := users.Find(ctx, bos.Where("login", bos.Eq, login))
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		a.Logger.Debug("updating demo user", "login", login)
		return users.Write(ctx, ids, rec)
	}
	id, err := users.Create(ctx, rec)
	if err != nil {
		return fmt.Errorf("creating demo user %s: %w", login, err)
	}
	a.Logger.Info("created demo user", "login", login, "id", id)
	return nil
}

// demoUser names the demo user of a language. Regional variants whose
// region differs from the language code (es_AR, pt_BR) get no user.
func demoUser(code, name string) (string, string, bool) {
	if code == "en" {
		return "Demo", "demo", true
	}
	if len(code) < 2 || code[:2] != strings.ToLower(code[len(code)-2:]) {
		return "", "", false
	}
	return "Demo " + name, "demo_" + code[:2], true
}

var _ workflow.Activity = (*Languages)(nil)

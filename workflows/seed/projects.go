package seed

import (
	"context"
	"log/slog"
	"time"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
)

const (
	modelProjectWork   = "project.work"
	modelTimesheetWork = "timesheet.work"
	modelTimesheetLine = "timesheet.line"
)

var timesheetWindow = replay.Daily(replay.Offset{Months: -1}, replay.Offset{})

// Projects creates the customer projects and their tasks.
type Projects struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Parties     *Parties
	Company     *Company
}

func (a *Projects) Init() error {
	return nil
}

func (a *Projects) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		customers, err := a.Parties.Customers(ctx)
		if err != nil {
			return err
		}
		r := a.Runner.Rand()
		created := 0
		for _, project := range projects {
			key := bos.Where("name", bos.Eq, project.name).And("type", bos.Eq, "project")
			_, ok, err := a.Provisioner.Ensure(ctx, modelProjectWork, key, func(context.Context) (bos.Record, error) {
				var tasks bos.Children
				for _, name := range project.tasks {
					tasks = append(tasks, bos.Record{
						"name":                name,
						"type":                "task",
						"timesheet_available": true,
						"effort_duration":     replay.EffortHours(r),
						"progress":            replay.QuantizedProgress(r),
					})
				}
				rec := bos.Record{
					"name":                project.name,
					"type":                "project",
					"timesheet_available": false,
					"children":            tasks,
				}
				if customer, ok := replay.Pick(r, customers); ok {
					rec["party"] = customer
				}
				if company := a.Company.ID(); company != 0 {
					rec["company"] = company
				}
				return rec, nil
			})
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		a.StatusLine.Setf("%d projects, %d created", len(projects), created)
		return nil
	})
}

// Timesheets books the last month of weekdays for every employee of the
// main company: random lines until the workday is full or the employee
// stops early.
type Timesheets struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Company     *Company

	_ *Projects
}

func (a *Timesheets) Init() error {
	return nil
}

func (a *Timesheets) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		for _, name := range timesheetWorks {
			if _, _, err := a.Provisioner.Ensure(ctx, modelTimesheetWork, bos.Where("name", bos.Eq, name),
				provision.Values(bos.Record{"name": name})); err != nil {
				return err
			}
		}
		works, err := bos.Model(a.Provisioner.Service(), modelTimesheetWork).Find(ctx, nil)
		if err != nil {
			return err
		}
		company := a.Company.ID()
		if company == 0 {
			a.StatusLine.Set("skipped: no company")
			return nil
		}
		employees, err := a.Provisioner.Employees().Of(ctx, company)
		if err != nil {
			return err
		}

		r := a.Runner.Rand()
		day := workdayHours * time.Hour
		lines := 0
		for _, date := range timesheetWindow.Dates(a.Session.Today, r) {
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			for _, employee := range employees {
				for total := time.Duration(0); total < day; {
					if r.Chance(0.2) {
						break
					}
					work, _ := replay.Pick(r, works)
					duration := min(time.Duration(r.Between(1, workdayHours))*time.Hour, day-total)
					if _, err := a.Runner.Create(ctx, modelTimesheetLine, bos.Record{
						"employee":    employee,
						"date":        date,
						"work":        work,
						"duration":    duration,
						"description": r.Sentence(3),
					}); err != nil {
						return err
					}
					total += duration
					lines++
				}
			}
		}
		a.StatusLine.Setf("%d timesheet lines for %d employees", lines, len(employees))
		return nil
	})
}

var (
	_ workflow.Activity = (*Projects)(nil)
	_ workflow.Activity = (*Timesheets)(nil)
)

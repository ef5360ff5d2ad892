package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contesthub/internal/domain"
	"contesthub/internal/model"
)

func (c *cli) domainCommands() []*cobra.Command {
	return []*cobra.Command{
		c.competitionsCmd(),
		c.registerForCmd(),
		c.submitCmd(),
		c.submissionsCmd(),
		c.reviewCmd("status", "Set a submission's status (pending, approved, rejected)",
			func(ctx context.Context, d *domain.Store, id, v string) (model.Submission, error) {
				return d.UpdateStudentStatus(ctx, id, v)
			}),
		c.reviewCmd("stage", "Move a submission to another stage of its competition",
			func(ctx context.Context, d *domain.Store, id, v string) (model.Submission, error) {
				return d.UpdateSubmissionStage(ctx, id, v)
			}),
		c.reviewCmd("result", "Set a submission's result (pending, passed, failed)",
			func(ctx context.Context, d *domain.Store, id, v string) (model.Submission, error) {
				return d.UpdateSubmissionResult(ctx, id, model.Outcome(strings.ToLower(v)))
			}),
		c.reviewCmd("feedback", "Leave feedback on a submission",
			func(ctx context.Context, d *domain.Store, id, v string) (model.Submission, error) {
				return d.AddFeedback(ctx, id, v)
			}),
		c.certificatesCmd(),
		c.notificationsCmd(),
		c.studentsCmd(),
	}
}

func (c *cli) competitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "competitions",
		Aliases: []string{"comps"},
		Short:   "List or create competitions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List competitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			tw := table(c.out, "ID", "NAME", "TYPE", "STAGES", "START", "END", "MAX")
			for _, comp := range c.app.Domain.Competitions() {
				row(tw, comp.ID, comp.Name, comp.Type, strings.Join(comp.Stages, " > "), date(comp.StartDate), date(comp.EndDate), comp.MaxParticipants)
			}
			return tw.Flush()
		},
	}

	var form domain.CompetitionForm
	var typ, start, end string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a competition (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.admin(); err != nil {
				return err
			}
			var err error
			if form.StartDate, err = parseDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if form.EndDate, err = parseDate(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			form.Type = model.CompetitionType(typ)
			comp, err := c.app.Domain.CreateCompetition(cmd.Context(), form)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %s (%s)\n", good("Created"), comp.Name, comp.ID)
			return nil
		},
	}
	create.Flags().StringVar(&form.Name, "name", "", "competition name")
	create.Flags().StringVar(&form.Description, "description", "", "description")
	create.Flags().StringSliceVar(&form.Stages, "stage", nil, "stage, in order (repeatable)")
	create.Flags().StringVar(&typ, "type", string(model.CompetitionInternal), "internal or external")
	create.Flags().StringVar(&start, "start", "", "start date, YYYY-MM-DD")
	create.Flags().StringVar(&end, "end", "", "end date, YYYY-MM-DD")
	create.Flags().IntVar(&form.MaxParticipants, "max", 0, "participant limit, 0 for none")

	cmd.AddCommand(list, create)
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func (c *cli) registerForCmd() *cobra.Command {
	var form domain.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register-for <competition>",
		Short: "Register for a competition by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			form.Competition = args[0]
			if form.Name == "" {
				form.Name = id.Name
			}
			sub, err := c.app.Domain.RegisterForCompetition(cmd.Context(), form)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s for %s, status %s (%s)\n", good("Registered"), sub.CompetitionName, status(string(sub.Status)), sub.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "name on the registration (defaults to yours)")
	cmd.Flags().StringVar(&form.Grade, "grade", "", "grade or class")
	return cmd
}

func (c *cli) submitCmd() *cobra.Command {
	var form domain.ProjectForm
	cmd := &cobra.Command{
		Use:   "submit <competition>",
		Short: "Submit a project link for a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			form.CompetitionID = args[0]
			if comp, ok := c.app.Domain.Competition(args[0]); ok {
				form.CompetitionID = comp.ID
			}
			sub, err := c.app.Domain.AddSubmission(cmd.Context(), form)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %s for %s\n", good("Submitted"), sub.ProjectLink, sub.CompetitionName)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.ProjectLink, "link", "", "project URL")
	cmd.Flags().StringVar(&form.Description, "description", "", "short description")
	return cmd
}

func (c *cli) submissionsCmd() *cobra.Command {
	var student, competition string
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List submissions (admins see the whole school)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			subs := c.app.Domain.Submissions()
			switch {
			case student != "":
				subs = c.app.Domain.GetStudentSubmissions(student)
			case competition != "":
				if comp, ok := c.app.Domain.Competition(competition); ok {
					competition = comp.ID
				}
				subs = c.app.Domain.GetCompetitionSubmissions(competition)
			}
			tw := table(c.out, "ID", "STUDENT", "COMPETITION", "STATUS", "STAGE", "RESULT", "PROJECT")
			for _, s := range subs {
				row(tw, s.ID, s.StudentName, s.CompetitionName, status(string(s.Status)), orDash(s.Stage), status(string(s.Result)), orDash(s.ProjectLink))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "only this student id")
	cmd.Flags().StringVar(&competition, "competition", "", "only this competition (id or name)")
	return cmd
}

func (c *cli) reviewCmd(name, short string, apply func(context.Context, *domain.Store, string, string) (model.Submission, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <submission-id> <value>",
		Short: short + " (admin)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.admin(); err != nil {
				return err
			}
			sub, err := apply(cmd.Context(), c.app.Domain, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %s: status %s, stage %s, result %s\n", good("Updated"), sub.StudentName,
				status(string(sub.Status)), orDash(sub.Stage), status(string(sub.Result)))
			return nil
		},
	}
}

func (c *cli) certificatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certificates",
		Aliases: []string{"certs"},
		Short:   "List or issue certificates",
	}

	var student string
	list := &cobra.Command{
		Use:   "list",
		Short: "List certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			certs := c.app.Domain.Certificates()
			if student != "" {
				certs = c.app.Domain.GetStudentCertificates(student)
			}
			tw := table(c.out, "ID", "STUDENT", "COMPETITION", "ACHIEVEMENT", "ISSUER", "DATE")
			for _, cert := range certs {
				row(tw, cert.ID, cert.StudentName, cert.CompetitionName, cert.Achievement, orDash(cert.Issuer), date(cert.Date))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&student, "student", "", "only this student id")

	var form domain.CertificateForm
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a certificate (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.admin(); err != nil {
				return err
			}
			if comp, ok := c.app.Domain.Competition(form.CompetitionID); ok {
				form.CompetitionID = comp.ID
			}
			cert, err := c.app.Domain.IssueCertificate(cmd.Context(), form)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %q to %s\n", good("Issued"), cert.Achievement, cert.StudentName)
			return nil
		},
	}
	issue.Flags().StringVar(&form.StudentID, "student", "", "student id")
	issue.Flags().StringVar(&form.CompetitionID, "competition", "", "competition id or name")
	issue.Flags().StringVar(&form.Achievement, "achievement", "", "achievement label")

	cmd.AddCommand(list, issue)
	return cmd
}

func (c *cli) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notes"},
		Short:   "List or dismiss notifications",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.identity(); err != nil {
				return err
			}
			tw := table(c.out, "ID", "WHEN", "TYPE", "TEXT")
			for _, n := range c.app.Domain.VisibleNotifications() {
				row(tw, n.ID, clock(n.Date), status(string(n.Type)), n.Text)
			}
			return tw.Flush()
		},
	}
	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Dismiss a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Domain.RemoveNotification(args[0]) {
				return fmt.Errorf("no notification %s", args[0])
			}
			fmt.Fprintln(c.out, "Removed")
			return nil
		},
	}
	cmd.AddCommand(list, remove)
	return cmd
}

func (c *cli) studentsCmd() *cobra.Command {
	var roster bool
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List student registrations, or the school roster (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.admin(); err != nil {
				return err
			}
			if roster {
				tw := table(c.out, "ID", "NAME", "EMAIL", "GRADE")
				for _, s := range c.app.Domain.Roster() {
					row(tw, s.ID, s.Name, s.Email, orDash(s.Grade))
				}
				return tw.Flush()
			}
			tw := table(c.out, "SUBMISSION", "STUDENT", "NAME", "GRADE", "COMPETITION", "STATUS")
			for _, s := range c.app.Domain.Students() {
				row(tw, s.ID, s.StudentID, s.Name, orDash(s.Grade), s.Competition, status(s.Status))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&roster, "roster", false, "list every student account of the school")
	return cmd
}

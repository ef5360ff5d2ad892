package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"contesthub/internal/team"
)

func (c *cli) teamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Teams, join requests, team chat and resources",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.open(cmd); err != nil {
				return err
			}
			_, err := c.identity()
			return err
		},
	}

	var mine bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teams := c.app.Teams.Teams()
			if mine {
				teams = c.app.Teams.GetUserTeams()
			}
			tw := table(c.out, "ID", "NAME", "COMPETITION", "SCORE", "MEMBERS")
			for _, t := range teams {
				row(tw, t.ID, t.Name, c.competitionName(t.CompetitionID), t.Score, members(t))
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&mine, "mine", false, "only teams you belong to")

	var form team.TeamForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a team; you become its leader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if comp, ok := c.app.Domain.Competition(form.CompetitionID); ok {
				form.CompetitionID = comp.ID
			}
			t, err := c.app.Teams.CreateTeam(cmd.Context(), form)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %s (%s)\n", good("Created team"), t.Name, t.ID)
			return nil
		},
	}
	create.Flags().StringVar(&form.Name, "name", "", "team name")
	create.Flags().StringVar(&form.Description, "description", "", "what the team is about")
	create.Flags().StringVar(&form.CompetitionID, "competition", "", "competition id or name")

	var message string
	join := &cobra.Command{
		Use:   "join <team-id>",
		Short: "Ask to join a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Teams.IsTeamMember(args[0]) {
				return fmt.Errorf("you are already a member of %s", args[0])
			}
			req, err := c.app.Teams.RequestToJoinTeam(cmd.Context(), args[0], message)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "Request %s is %s\n", req.ID, status(string(req.Status)))
			return nil
		},
	}
	join.Flags().StringVarP(&message, "message", "m", "", "note for the team leader")

	requests := &cobra.Command{
		Use:   "requests",
		Short: "Pending join requests for teams you lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table(c.out, "ID", "TEAM", "FROM", "MESSAGE")
			for _, r := range c.app.Teams.GetMyTeamRequests() {
				row(tw, r.ID, c.teamName(r.TeamID), r.UserName, orDash(r.Message))
			}
			return tw.Flush()
		},
	}

	approve := &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a join request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.app.Teams.ApproveJoinRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s joined %s\n", r.UserName, c.teamName(r.TeamID))
			return nil
		},
	}
	reject := &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Reject a join request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.app.Teams.RejectJoinRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Request from %s %s\n", r.UserName, status(string(r.Status)))
			return nil
		},
	}

	messages := &cobra.Command{
		Use:   "messages <team-id>",
		Short: "Show a team's chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := c.app.Teams.LoadMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(c.out, "%s %s: %s\n", faint(clock(m.Timestamp)), m.SenderName, m.Text)
			}
			return nil
		},
	}
	send := &cobra.Command{
		Use:   "send <team-id> <text>",
		Short: "Post to a team's chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.Teams.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintln(c.out, "Sent")
			return nil
		},
	}

	resources := &cobra.Command{
		Use:   "resources <team-id>",
		Short: "List a team's shared resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Teams.LoadResources(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := table(c.out, "NAME", "TYPE", "URL", "ADDED BY", "WHEN")
			for _, r := range res {
				row(tw, r.Name, r.Type, r.URL, r.AddedBy, clock(r.Timestamp))
			}
			return tw.Flush()
		},
	}

	var resForm team.ResourceForm
	var file string
	addResource := &cobra.Command{
		Use:   "add-resource <team-id>",
		Short: "Share a link, or upload a file with --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				resForm.Data = data
				resForm.Filename = filepath.Base(file)
				if resForm.Name == "" {
					resForm.Name = resForm.Filename
				}
			}
			r, err := c.app.Teams.AddResource(cmd.Context(), args[0], resForm)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s %s %s\n", good("Shared"), r.Name, r.URL)
			return nil
		},
	}
	addResource.Flags().StringVar(&resForm.Name, "name", "", "display name")
	addResource.Flags().StringVar(&resForm.URL, "url", "", "link to share")
	addResource.Flags().StringVar(&file, "file", "", "file to upload (needs Cloudinary credentials)")

	removeMember := &cobra.Command{
		Use:   "remove-member <team-id> <user-id>",
		Short: "Remove a member from a team you lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.app.Teams.RemoveMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s members: %s\n", t.Name, members(t))
			return nil
		},
	}
	leader := &cobra.Command{
		Use:   "leader <team-id> <user-id>",
		Short: "Hand leadership to another member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.app.Teams.TransferLeadership(cmd.Context(), args[0], args[1])
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "%s members: %s\n", t.Name, members(t))
			return nil
		},
	}

	leaderboard := &cobra.Command{
		Use:   "leaderboard <competition>",
		Short: "Rank the teams of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compID := args[0]
			if comp, ok := c.app.Domain.Competition(compID); ok {
				compID = comp.ID
			}
			tw := table(c.out, "RANK", "TEAM", "SCORE")
			for _, e := range c.app.Teams.Leaderboard(compID) {
				row(tw, e.Rank, e.TeamName, e.Score)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(list, create, join, requests, approve, reject, messages, send,
		resources, addResource, removeMember, leader, leaderboard)
	return cmd
}

func (c *cli) competitionName(id string) string {
	if comp, ok := c.app.Domain.Competition(id); ok {
		return comp.Name
	}
	return id
}

func (c *cli) teamName(id string) string {
	if t, ok := c.app.Teams.Team(id); ok {
		return t.Name
	}
	return id
}

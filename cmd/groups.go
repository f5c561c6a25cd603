// ABOUTME: Group commands: list, starred, search, star, unstar, create, storage
// ABOUTME: Prints dashboard listings as tables or JSON

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/collabfs/collabfs-cli/internal/flow"
	"github.com/collabfs/collabfs-cli/internal/groups"
)

var (
	searchSection    string
	groupName        string
	groupDescription string
	// positional arguments, set by each command's Run
	groupArgs []string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List, search and manage your groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all your groups",
	Run:   runWithSignals(func(ctx context.Context, w io.Writer) int { return runGroupsList(ctx, w, groups.SectionHome) }),
}

var groupsStarredCmd = &cobra.Command{
	Use:   "starred",
	Short: "List your starred groups",
	Run:   runWithSignals(func(ctx context.Context, w io.Writer) int { return runGroupsList(ctx, w, groups.SectionStarred) }),
}

var groupsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search groups in a dashboard section",
	Args:  cobra.MinimumNArgs(1),
	Run:   withArgs(runGroupsSearch),
}

var groupsStarCmd = &cobra.Command{
	Use:   "star <group-id>",
	Short: "Star a group",
	Args:  cobra.ExactArgs(1),
	Run:   withArgs(func(ctx context.Context, w io.Writer) int { return runGroupsStar(ctx, w, true) }),
}

var groupsUnstarCmd = &cobra.Command{
	Use:   "unstar <group-id>",
	Short: "Remove a group's star",
	Args:  cobra.ExactArgs(1),
	Run:   withArgs(func(ctx context.Context, w io.Writer) int { return runGroupsStar(ctx, w, false) }),
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a group",
	Run:   runWithSignals(runGroupsCreate),
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show storage used overall and per group",
	Run:   runWithSignals(runStorage),
}

func init() {
	rootCmd.AddCommand(groupsCmd, storageCmd)
	groupsCmd.AddCommand(groupsListCmd, groupsStarredCmd, groupsSearchCmd, groupsStarCmd, groupsUnstarCmd, groupsCreateCmd)

	groupsSearchCmd.Flags().StringVar(&searchSection, "section", "home", "Section to search: home, starred or storage")
	groupsCreateCmd.Flags().StringVar(&groupName, "name", "", "Group name")
	groupsCreateCmd.Flags().StringVar(&groupDescription, "description", "", "Group description (up to 1000 characters)")
}

// withArgs is runWithSignals for commands that take positional arguments
func withArgs(run func(ctx context.Context, w io.Writer) int) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		groupArgs = args
		runWithSignals(run)(cmd, args)
	}
}

func runGroupsList(ctx context.Context, w io.Writer, section groups.Section) int {
	return listSection(ctx, w, section, "")
}

func runGroupsSearch(ctx context.Context, w io.Writer) int {
	section, err := groups.ParseSection(searchSection)
	if err != nil {
		return fail(w, &flow.ValidationError{Message: err.Error()})
	}
	return listSection(ctx, w, section, strings.Join(groupArgs, " "))
}

func listSection(ctx context.Context, w io.Writer, section groups.Section, query string) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.requireLogin()
	if err != nil {
		return fail(w, err)
	}

	list, err := groups.Load(ctx, e.client, section, u.ID, query, e.cfg.StorageLimitBytes)
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		printJSON(w, list)
		return exitOK
	}
	fmt.Fprintln(w, formatGroupsHuman(section, list))
	return exitOK
}

// formatGroupsHuman renders a section listing as a table
func formatGroupsHuman(section groups.Section, list []groups.Group) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", section.Title(), len(list))
	if len(list) == 0 {
		b.WriteString("No groups found.")
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	if section == groups.SectionStorage {
		fmt.Fprintln(tw, "ID\tNAME\tUSED\tDOCS\tPHOTOS\tVIDEOS\tAUDIO\tOTHER")
		for _, g := range list {
			f := g.Storage.Files
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				g.ID, g.Name, groups.FormatBytes(g.Storage.Used, 1),
				f.Documents, f.Photos, f.Videos, f.Audio, f.Others)
		}
	} else {
		fmt.Fprintln(tw, "\tID\tNAME\tROLE\tMODIFIED")
		for _, g := range list {
			star := " "
			if g.Starred {
				star = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", star, g.ID, g.Name, groups.RoleLabel(g.Role), g.LastModified)
		}
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func runGroupsStar(ctx context.Context, w io.Writer, star bool) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.requireLogin()
	if err != nil {
		return fail(w, err)
	}

	id := groupArgs[0]
	verb := "Starred"
	if star {
		err = e.client.StarGroup(ctx, u.ID, id)
	} else {
		verb = "Unstarred"
		err = e.client.UnstarGroup(ctx, u.ID, id)
	}
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		printJSON(w, map[string]any{"group_id": id, "starred": star})
		return exitOK
	}
	fmt.Fprintf(w, "%s group %s\n", verb, id)
	return exitOK
}

func runGroupsCreate(ctx context.Context, w io.Writer) int {
	if err := groups.ValidateNewGroup(groupName, groupDescription); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitRejected
	}

	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.requireLogin()
	if err != nil {
		return fail(w, err)
	}

	resp, err := groups.Create(ctx, e.client, u.ID, groupName, groupDescription)
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		printJSON(w, resp)
		return exitOK
	}
	fmt.Fprintf(w, "Created group %q (%s)\n", strings.TrimSpace(groupName), resp.GroupID)
	return exitOK
}

// storageView is the JSON shape of the storage command
type storageView struct {
	Used    int64          `json:"used"`
	Limit   int64          `json:"limit"`
	Percent float64        `json:"percent"`
	Groups  []groups.Group `json:"groups"`
}

func runStorage(ctx context.Context, w io.Writer) int {
	e, err := openEnv()
	if err != nil {
		return fail(w, err)
	}
	defer e.Close()

	u, err := e.requireLogin()
	if err != nil {
		return fail(w, err)
	}

	d, err := groups.LoadDashboard(ctx, e.client, groups.SectionStorage, u.ID, "", e.cfg.StorageLimitBytes)
	if err != nil {
		return fail(w, err)
	}

	view := storageView{
		Used:    d.StorageUsed,
		Limit:   d.Limit,
		Percent: groups.UsagePercent(d.StorageUsed, d.Limit),
		Groups:  d.Groups,
	}
	if IsJSONOutput() {
		printJSON(w, view)
		return exitOK
	}
	fmt.Fprintln(w, formatStorageHuman(view))
	return exitOK
}

func formatStorageHuman(v storageView) string {
	return fmt.Sprintf("Storage: %s of %s used (%s%%)\n\n%s",
		groups.FormatBytes(v.Used, 2), groups.FormatBytes(v.Limit, 2),
		strconv.FormatFloat(v.Percent, 'f', -1, 64),
		formatGroupsHuman(groups.SectionStorage, v.Groups))
}

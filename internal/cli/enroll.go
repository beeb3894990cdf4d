package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newEnrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Roster commands",
	}

	cmd.AddCommand(newEnrollSelfCmd())
	cmd.AddCommand(newEnrollGuestCmd())
	cmd.AddCommand(newEnrollRemoveCmd())
	cmd.AddCommand(newEnrollTeamCmd())

	return cmd
}

func parsePosition(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("position must be a number: %q", s)
	}
	return p, nil
}

func newEnrollSelfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self <game-id> <position>",
		Short: "Take a position in a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parsePosition(args[1])
			if err != nil {
				return err
			}

			var result Enrollment
			if err := client.Post(gamePath(args[0], "enrollments"), map[string]int{"position": position}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newEnrollGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest <game-id> <name> <position>",
		Short: "Enroll a guest, creating it if the name is new",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := parsePosition(args[2])
			if err != nil {
				return err
			}

			req := map[string]any{"name": args[1], "position": position}
			var result Enrollment
			if err := client.Post(gamePath(args[0], "guests"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newEnrollRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <game-id> <player-id>",
		Short: "Remove a player you enrolled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(gamePath(args[0], "enrollments", args[1])); err != nil {
				return err
			}

			output(cmd).PrintMessage("Removed from the game")
			return nil
		},
	}
}

func newEnrollTeamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "team <game-id> <enrollment-id> <white|black|none>",
		Short: "Assign or clear a team (admin only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			team := args[2]
			if team == "none" {
				team = ""
			}

			var result Enrollment
			if err := client.Put(gamePath(args[0], "enrollments", args[1], "team"), map[string]string{"team": team}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

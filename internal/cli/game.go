package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGamePastCmd())
	cmd.AddCommand(newGameShowCmd())
	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGamePositionsCmd())
	cmd.AddCommand(newGameGuestsCmd())
	cmd.AddCommand(newGameWinnerCmd())

	return cmd
}

func gamePath(id string, parts ...string) string {
	p := "/api/v1/games/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func newGameListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List upcoming games",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameList

			if err := client.Get("/api/v1/games", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGamePastCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "past",
		Short: "List past games, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GamePage

			if err := client.Get(fmt.Sprintf("/api/v1/games/past?page=%d", page), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")

	return cmd
}

func newGameShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show a game and its roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get(gamePath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameCreateCmd() *cobra.Command {
	var (
		date, start, end, location string
		lat, lon, price            float64
		maxPlayers                 int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a new game (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"date":        date,
				"start_time":  start,
				"end_time":    end,
				"latitude":    lat,
				"longitude":   lon,
				"max_players": maxPlayers,
				"price":       price,
				"location":    location,
			}
			var result Game

			if err := client.Post("/api/v1/games", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&start, "start", "", "Start time, HH:MM (required)")
	cmd.Flags().StringVar(&end, "end", "", "End time, HH:MM (required)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 10, "Number of positions")
	cmd.Flags().Float64Var(&price, "price", 0, "Price per player")
	cmd.Flags().StringVar(&location, "location", "", "Location name (looked up from coordinates when empty)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newGamePositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions <game-id>",
		Short: "Show free positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Positions

			if err := client.Get(gamePath(args[0], "positions"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameGuestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guests <game-id>",
		Short: "List known guests not yet in the game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GuestList

			if err := client.Get(gamePath(args[0], "guests"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameWinnerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "winner <game-id> <white|black|draw>",
		Short: "Declare the result (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Put(gamePath(args[0], "winner"), map[string]string{"team": args[1]}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

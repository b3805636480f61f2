package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruet-portal/portal-backend/internal/repository"
)

// fees set seeds the balances that are maintained outside the portal
// (hall office, department office).  Library fines are only ever added by
// book returns and cannot be set here.
func newFeesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Seed externally maintained student balances",
	}

	var hallFee, deptFee int64
	var hall, room string
	set := &cobra.Command{
		Use:   "set <student-id>",
		Short: "Set hall fee, department fee, hall or room for a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u repository.FeeUpdate
			f := cmd.Flags()
			if f.Changed("hall-fee") {
				if hallFee < 0 {
					return errors.New("--hall-fee must not be negative")
				}
				u.HallFee = &hallFee
			}
			if f.Changed("dept-fee") {
				if deptFee < 0 {
					return errors.New("--dept-fee must not be negative")
				}
				u.DeptFee = &deptFee
			}
			if f.Changed("hall") {
				u.Hall = &hall
			}
			if f.Changed("room") {
				u.Room = &room
			}
			if u == (repository.FeeUpdate{}) {
				return errors.New("nothing to set")
			}

			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			err := repository.NewStudentRepo(a.db).UpdateFees(cmd.Context(), args[0], u)
			if errors.Is(err, repository.ErrStudentNotFound) {
				return fmt.Errorf("student %s not found", args[0])
			}
			if err != nil {
				return err
			}
			cmd.Printf("student %s updated\n", args[0])
			return nil
		},
	}
	set.Flags().Int64Var(&hallFee, "hall-fee", 0, "hall fee in taka")
	set.Flags().Int64Var(&deptFee, "dept-fee", 0, "department fee in taka")
	set.Flags().StringVar(&hall, "hall", "", "hall name")
	set.Flags().StringVar(&room, "room", "", "room number")

	cmd.AddCommand(set)
	return cmd
}

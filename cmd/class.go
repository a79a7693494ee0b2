package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/attendance-scanner/internal/config"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/spf13/cobra"
)

var classCmd = &cobra.Command{
	Use:   "class",
	Short: "Manage classes, subjects and rosters",
	Long:  `List classes. Use subcommands to create, delete and edit them.`,
	RunE:  runClassList,
}

var classCreateCmd = &cobra.Command{
	Use:   "create <class-id>",
	Short: "Create an empty class",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassCreate,
}

var classDeleteCmd = &cobra.Command{
	Use:   "delete <class-id>",
	Short: "Delete a class and all of its attendance records",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassDelete,
}

var classImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import classes, subjects and students from YAML",
	Long: `Import classes from a YAML seed file. Existing classes are merged:
subjects with a known name and students already on the roster are skipped.

Example file:
  classes:
    - class_id: 10A
      students: [Alice Novak, Bob Svoboda]
      subjects:
        - subject: Math
          teacher: Mr. Dvorak
          start_time: "08:00"
          late_time: "08:15"`,
	Args: cobra.ExactArgs(1),
	RunE: runClassImport,
}

var classSubjectCmd = &cobra.Command{
	Use:   "subject",
	Short: "Manage subjects of a class",
}

var classSubjectAddCmd = &cobra.Command{
	Use:   "add <class-id> <subject>",
	Short: "Append a subject",
	Args:  cobra.ExactArgs(2),
	RunE:  runClassSubjectAdd,
}

var classSubjectUpdateCmd = &cobra.Command{
	Use:   "update <class-id> <index> <subject>",
	Short: "Replace the subject at index",
	Args:  cobra.ExactArgs(3),
	RunE:  runClassSubjectUpdate,
}

var classSubjectRemoveCmd = &cobra.Command{
	Use:   "remove <class-id> <index>",
	Short: "Remove the subject at index",
	Args:  cobra.ExactArgs(2),
	RunE:  runClassSubjectRemove,
}

var classStudentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage the roster of a class",
}

var classStudentAddCmd = &cobra.Command{
	Use:   "add <class-id> <name...>",
	Short: "Add students to the roster",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runClassStudentAdd,
}

var classStudentRemoveCmd = &cobra.Command{
	Use:   "remove <class-id> <name>",
	Short: "Remove a student from the roster and drop their records for the class",
	Args:  cobra.ExactArgs(2),
	RunE:  runClassStudentRemove,
}

func init() {
	rootCmd.AddCommand(classCmd)
	classCmd.AddCommand(classCreateCmd, classDeleteCmd, classImportCmd, classSubjectCmd, classStudentCmd)
	classSubjectCmd.AddCommand(classSubjectAddCmd, classSubjectUpdateCmd, classSubjectRemoveCmd)
	classStudentCmd.AddCommand(classStudentAddCmd, classStudentRemoveCmd)

	classDeleteCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	classStudentRemoveCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	for _, c := range []*cobra.Command{classSubjectAddCmd, classSubjectUpdateCmd} {
		c.Flags().String("teacher", "", "Teacher name")
		c.Flags().String("start", "", "Start time (HH:MM, 24h)")
		c.Flags().String("late", "", "Late cutoff (HH:MM, 24h)")
	}
}

// withApp opens the stores for a one-shot command.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func subjectFromFlags(cmd *cobra.Command, name string) database.Subject {
	return database.Subject{
		Name:      name,
		Teacher:   mustGetString(cmd, "teacher"),
		StartTime: mustGetString(cmd, "start"),
		LateTime:  mustGetString(cmd, "late"),
	}
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid subject index %q", s)
	}
	return index, nil
}

func runClassList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		classes, err := a.roster.List(ctx)
		if err != nil {
			return err
		}
		if len(classes) == 0 {
			fmt.Println("No classes found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLASS\tSTUDENTS\t#\tSUBJECT\tTEACHER\tSTART\tLATE")
		fmt.Fprintln(w, "-----\t--------\t-\t-------\t-------\t-----\t----")
		for _, c := range classes {
			if len(c.Subjects) == 0 {
				fmt.Fprintf(w, "%s\t%d\t\t\t\t\t\n", c.ClassID, len(c.Students))
				continue
			}
			for i, s := range c.Subjects {
				id, students := "", ""
				if i == 0 {
					id, students = c.ClassID, strconv.Itoa(len(c.Students))
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", id, students, i, s.Name, s.Teacher, s.StartTime, s.LateTime)
			}
		}
		w.Flush()

		fmt.Printf("\nTotal: %d classes\n", len(classes))
		return nil
	})
}

func runClassCreate(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		created, err := a.roster.Create(ctx, args[0])
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Class %s already exists.\n", args[0])
			return nil
		}
		fmt.Printf("Created class %s.\n", args[0])
		return nil
	})
}

func runClassDelete(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") && !confirm(fmt.Sprintf("Delete class %s and all of its attendance records?", args[0])) {
		fmt.Println("Cancelled.")
		return nil
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.roster.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted class %s.\n", args[0])
		return nil
	})
}

func runClassImport(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		result, err := a.roster.ImportFile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Classes created: %d\n", result.ClassesCreated)
		fmt.Printf("Subjects added:  %d (skipped %d)\n", result.SubjectsAdded, result.SubjectsSkipped)
		fmt.Printf("Students added:  %d\n", result.StudentsAdded)
		return nil
	})
}

func runClassSubjectAdd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		subject, err := a.roster.AddSubject(ctx, args[0], subjectFromFlags(cmd, args[1]))
		if err != nil {
			return err
		}
		fmt.Printf("Added %s to %s (start %s, late %s).\n", subject.Name, args[0], subject.StartTime, subject.LateTime)
		return nil
	})
}

func runClassSubjectUpdate(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		subject, err := a.roster.UpdateSubject(ctx, args[0], index, subjectFromFlags(cmd, args[2]))
		if err != nil {
			return err
		}
		fmt.Printf("Updated subject %d of %s to %s.\n", index, args[0], subject.Name)
		return nil
	})
}

func runClassSubjectRemove(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.roster.RemoveSubject(ctx, args[0], index); err != nil {
			return err
		}
		fmt.Printf("Removed subject %d from %s.\n", index, args[0])
		return nil
	})
}

func runClassStudentAdd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		for _, name := range args[1:] {
			if err := a.roster.AddStudent(ctx, args[0], name); err != nil {
				return err
			}
			fmt.Printf("  + %s\n", name)
		}
		fmt.Printf("Added %d student(s) to %s.\n", len(args)-1, args[0])
		return nil
	})
}

func runClassStudentRemove(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") && !confirm(fmt.Sprintf("Remove %s from %s and delete their records for the class?", args[1], args[0])) {
		fmt.Println("Cancelled.")
		return nil
	}
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.roster.RemoveStudent(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Removed %s from %s.\n", args[1], args[0])
		return nil
	})
}

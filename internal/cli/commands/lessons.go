package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/cli/output"
)

// lessonJSON is the JSON form of a lesson summary.
type lessonJSON struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Path       string   `json:"path"`
	Panes      []string `json:"panes"`
	Properties []string `json:"properties"`
}

// NewLessonsCommand creates the lessons command.
func NewLessonsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "lessons",
		Aliases: []string{"ls"},
		Short:   "List lessons",
		Long:    `List the lessons found in the lessons directory with their panes and properties.`,
		Args:    cobra.NoArgs,
		RunE:    runLessons,
	}
}

func runLessons(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)

	catalog, err := cc.LoadCatalog()
	if err != nil {
		return err
	}
	lessons := catalog.List()

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		items := make([]lessonJSON, 0, len(lessons))
		for _, l := range lessons {
			item := lessonJSON{ID: l.ID, Title: l.Title, Path: l.Path, Panes: []string{}, Properties: []string{}}
			for _, p := range l.Panes {
				item.Panes = append(item.Panes, p.ID)
			}
			for _, p := range l.Properties {
				item.Properties = append(item.Properties, p.ID)
			}
			items = append(items, item)
		}
		return r.JSON(items)
	}

	if len(lessons) == 0 {
		r.Printf("No lessons in %s\n", catalog.Dir())
		return nil
	}

	rows := make([][]string, 0, len(lessons))
	for _, l := range lessons {
		rows = append(rows, []string{
			l.ID,
			l.Title,
			strconv.Itoa(len(l.Visible())),
			strconv.Itoa(len(l.Panes) - len(l.Visible())),
			strconv.Itoa(len(l.Properties)),
		})
	}
	r.Table([]string{"Lesson", "Title", "Panes", "Hidden", "Properties"}, rows)
	return nil
}

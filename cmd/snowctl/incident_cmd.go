package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hematic/servicenow-client/internal/servicenow"
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Incident table operations",
}

func init() {
	incidentCmd.AddCommand(incidentGetCmd)
	incidentCmd.AddCommand(incidentCreateCmd)
	incidentCmd.AddCommand(incidentUpdateCmd)

	f := incidentGetCmd.Flags()
	f.String("number", "", "incident number, e.g. INC0010165")
	f.String("search", "", "short-description fragment to match")
	f.String("caller", "", "requester: email, \"Last, First\", account name, or sys_id")

	addFieldFlags(incidentCreateCmd)
	incidentCreateCmd.Flags().String("file", "", "YAML file with a list of incidents to create")

	addFieldFlags(incidentUpdateCmd)
	incidentUpdateCmd.Flags().Int("state", 0, "incident_state (1, 2, 3, 6, 7, or 8)")
}

// addFieldFlags registers the incident field flags shared by create and update.
func addFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("short-description", "", "short description")
	f.String("description", "", "long description")
	f.String("caller-id", "", "caller sys_id")
	f.String("assignment-group", "", "assignment group")
	f.String("comments", "", "additional comments (customer visible)")
	f.String("work-notes", "", "work notes (internal)")
	f.String("category", "", "category (hardware, software_service)")
	f.String("symptom", "", "u_symptom (slow_performance, error_message, crash, unable_to_launch_connect, access_issue)")
	f.String("contact-type", "", "contact_type (email, call, im, walk-in, non_user_query, self-service)")
	f.Int("impact", 0, "impact (1-3)")
	f.Int("urgency", 0, "urgency (1-3)")
	f.Int("priority", 0, "priority (1-4)")
	f.Bool("suppress-notify", false, "suppress notifications for this change")
}

// fieldsFromFlags builds an IncidentFields carrying exactly the flags the
// user set; untouched flags stay nil and are omitted from the request body.
func fieldsFromFlags(cmd *cobra.Command) servicenow.IncidentFields {
	f := cmd.Flags()
	var fields servicenow.IncidentFields

	if f.Changed("short-description") {
		v, _ := f.GetString("short-description")
		fields.ShortDescription = &v
	}
	if f.Changed("description") {
		v, _ := f.GetString("description")
		fields.Description = &v
	}
	if f.Changed("caller-id") {
		v, _ := f.GetString("caller-id")
		fields.CallerID = &v
	}
	if f.Changed("assignment-group") {
		v, _ := f.GetString("assignment-group")
		fields.AssignmentGroup = &v
	}
	if f.Changed("comments") {
		v, _ := f.GetString("comments")
		fields.Comments = &v
	}
	if f.Changed("work-notes") {
		v, _ := f.GetString("work-notes")
		fields.WorkNotes = &v
	}
	if f.Changed("category") {
		v, _ := f.GetString("category")
		c := servicenow.Category(v)
		fields.Category = &c
	}
	if f.Changed("symptom") {
		v, _ := f.GetString("symptom")
		s := servicenow.Symptom(v)
		fields.Symptom = &s
	}
	if f.Changed("contact-type") {
		v, _ := f.GetString("contact-type")
		ct := servicenow.ContactType(v)
		fields.ContactType = &ct
	}
	if f.Changed("impact") {
		v, _ := f.GetInt("impact")
		fields.Impact = &v
	}
	if f.Changed("urgency") {
		v, _ := f.GetInt("urgency")
		fields.Urgency = &v
	}
	if f.Changed("priority") {
		v, _ := f.GetInt("priority")
		fields.Priority = &v
	}
	if f.Changed("state") {
		v, _ := f.GetInt("state")
		s := servicenow.State(v)
		fields.State = &s
	}
	if f.Changed("suppress-notify") {
		v, _ := f.GetBool("suppress-notify")
		fields.SuppressNotify = &v
	}
	return fields
}

var incidentGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Look up incidents by number, description fragment, or requester",
	RunE: func(cmd *cobra.Command, args []string) error {
		number, _ := cmd.Flags().GetString("number")
		search, _ := cmd.Flags().GetString("search")
		caller, _ := cmd.Flags().GetString("caller")

		var ref servicenow.IncidentRef
		switch {
		case number != "" && search == "" && caller == "":
			ref = servicenow.IncidentByNumber(number)
		case search != "" && number == "" && caller == "":
			ref = servicenow.IncidentBySearch(search)
		case caller != "" && number == "" && search == "":
			ref = servicenow.IncidentByCaller(caller)
		default:
			return fmt.Errorf("exactly one of --number, --search, or --caller is required")
		}

		return runCommand(func(ctx context.Context, c *clients) error {
			incidents, err := c.incidents.Get(ctx, ref)
			if err != nil {
				return err
			}
			return printJSON(incidents)
		})
	},
}

// incidentFile is the YAML shape accepted by incident create --file.
type incidentFile struct {
	Incidents []incidentSpec `yaml:"incidents"`
}

type incidentSpec struct {
	ShortDescription *string `yaml:"short_description"`
	Description      *string `yaml:"description"`
	CallerID         *string `yaml:"caller_id"`
	AssignmentGroup  *string `yaml:"assignment_group"`
	Comments         *string `yaml:"comments"`
	WorkNotes        *string `yaml:"work_notes"`
	Category         *string `yaml:"category"`
	Symptom          *string `yaml:"u_symptom"`
	ContactType      *string `yaml:"contact_type"`
	Impact           *int    `yaml:"impact"`
	Urgency          *int    `yaml:"urgency"`
	Priority         *int    `yaml:"priority"`
	SuppressNotify   *bool   `yaml:"u_suppress_notify"`
}

// fields converts the YAML spec into IncidentFields, preserving unset-ness.
func (s incidentSpec) fields() servicenow.IncidentFields {
	out := servicenow.IncidentFields{
		ShortDescription: s.ShortDescription,
		Description:      s.Description,
		CallerID:         s.CallerID,
		AssignmentGroup:  s.AssignmentGroup,
		Comments:         s.Comments,
		WorkNotes:        s.WorkNotes,
		Impact:           s.Impact,
		Urgency:          s.Urgency,
		Priority:         s.Priority,
		SuppressNotify:   s.SuppressNotify,
	}
	if s.Category != nil {
		c := servicenow.Category(*s.Category)
		out.Category = &c
	}
	if s.Symptom != nil {
		sy := servicenow.Symptom(*s.Symptom)
		out.Symptom = &sy
	}
	if s.ContactType != nil {
		ct := servicenow.ContactType(*s.ContactType)
		out.ContactType = &ct
	}
	return out
}

// createConcurrency bounds parallel creates in bulk mode.
const createConcurrency = 4

var incidentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an incident from flags, or several from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		if file == "" {
			fields := fieldsFromFlags(cmd)
			return runCommand(func(ctx context.Context, c *clients) error {
				created, err := c.incidents.Create(ctx, fields)
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		var batch incidentFile
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}
		if len(batch.Incidents) == 0 {
			return fmt.Errorf("%s contains no incidents", file)
		}

		return runCommand(func(ctx context.Context, c *clients) error {
			results := make([]*servicenow.Incident, len(batch.Incidents))
			g, gCtx := errgroup.WithContext(ctx)
			g.SetLimit(createConcurrency)
			for i, spec := range batch.Incidents {
				i, spec := i, spec
				g.Go(func() error {
					created, err := c.incidents.Create(gCtx, spec.fields())
					if err != nil {
						return fmt.Errorf("incidents[%d]: %w", i, err)
					}
					results[i] = created
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(results)
		})
	},
}

var incidentUpdateCmd = &cobra.Command{
	Use:   "update NUMBER",
	Short: "Partially update the incident with the given number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := fieldsFromFlags(cmd)
		return runCommand(func(ctx context.Context, c *clients) error {
			updated, err := c.incidents.Update(ctx, args[0], fields)
			if err != nil {
				return err
			}
			return printJSON(updated)
		})
	},
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/basinworks/filings-tracker/db/ent/schema/utils"
)

type JobRun struct{ ent.Schema }

func (JobRun) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "job_runs"},
	}
}

func (JobRun) Fields() []ent.Field {
	return []ent.Field{
		// {origin}_{YYYYMMDDHHMMSS}_{suffix}; generated by the job tracker
		field.String("id").
			Immutable().
			NotEmpty().
			StorageKey("id"),
		field.String("job_type").NotEmpty(),
		field.String("trigger_type").
			Validate(utils.EnumValidator("cron", "manual", "api")),
		field.String("status").
			Default("pending").
			Validate(utils.EnumValidator("pending", "running", "completed", "failed")),
		field.Time("started_at").Default(time.Now).Immutable(),
		field.Time("completed_at").Optional().Nillable(),
		field.String("error_message").Optional().Nillable(),
		field.JSON("metrics", map[string]any{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
	}
}

func (JobRun) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "started_at"),
	}
}

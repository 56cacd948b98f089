package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/db/ent/schema/utils"
)

type Contact struct{ ent.Schema }

func (Contact) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "contacts"},
	}
}

func (Contact) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		// either name or company is present; enforced at the application layer
		field.String("name").Optional().Nillable(),
		field.String("first_name").Optional().Nillable(),
		field.String("last_name").Optional().Nillable(),
		field.String("company").Optional().Nillable(),
		field.String("address").Optional().Nillable(),
		field.String("city").Optional().Nillable(),
		field.String("state").Optional().Nillable().MaxLen(2),
		field.String("zip").Optional().Nillable().MaxLen(10),
		field.String("unit").Optional().Nillable(),
		field.Strings("phones").Optional().
			SchemaType(map[string]string{dialect.Postgres: "text[]"}),
		field.Strings("emails").Optional().
			SchemaType(map[string]string{dialect.Postgres: "text[]"}),
		field.String("ownership_info").Optional().Nillable(),
		field.Float("mineral_rights_percentage").
			Optional().Nillable().
			Min(0).Max(100).
			SchemaType(map[string]string{dialect.Postgres: "numeric(7,4)"}),
		field.String("ownership_type").Optional().Nillable().
			Validate(utils.EnumValidator(constants.OwnershipTypeStrings()...)),
		field.String("record_type").Optional().Nillable(),
		field.String("document_section").Optional().Nillable(),
		field.String("notes").Optional().Nillable(),
		field.Bool("is_legal_entity").Default(false),
		field.Bool("acknowledged").Default(false),
		field.String("source_file").NotEmpty(),
		field.String("job_id").NotEmpty(),
		field.String("project_origin").NotEmpty(),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Contact) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_origin", "created_at"),
		index.Fields("job_id"),
	}
}

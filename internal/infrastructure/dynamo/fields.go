package dynamo

// DynamoDB attribute names used in keys and expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldEmail     = "email"
	fieldSchemeID  = "scheme_id"
	fieldCategory  = "category"
	fieldActive    = "active"
	fieldUpdatedAt = "updated_at"

	indexSchemeCategory = "category-index"
)

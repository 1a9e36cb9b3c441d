package booking

import "github.com/MarkoPoloResearchLab/voyages/pkg/query"

const (
	columnActive    = "active"
	columnCreatedAt = "created_at"
)

// capacityColumns back the derived remaining seat count.
var capacityColumns = []string{"total_capacity", "reserved_count"}

var newestFirst = []query.SortTerm{{Column: columnCreatedAt, Descending: true}}

// VoyageSchema is the list allow-list for voyages. Column names follow the
// relational layout used by the stores.
func VoyageSchema() query.Schema {
	return query.Schema{
		Fields: []query.Field{
			{Name: "id", Column: "id", Type: query.FieldUUID, Filterable: true},
			{Name: "title", Column: "title", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "description", Column: "description", Type: query.FieldString},
			{Name: "destination", Column: "destination", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "city", Column: "city", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "country", Column: "country", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "price", Column: "price", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "durationDays", Column: "duration_days", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "departureDate", Column: "departure_at", Type: query.FieldTime, Filterable: true, Sortable: true},
			{Name: "returnDate", Column: "return_at", Type: query.FieldTime, Filterable: true, Sortable: true},
			{Name: "totalCapacity", Column: "total_capacity", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "reservedCount", Column: "reserved_count", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "remaining", Column: "remaining", Type: query.FieldNumber, Filterable: true, Sortable: true, Requires: capacityColumns},
			{Name: "active", Column: columnActive, Type: query.FieldBool},
			{Name: "status", Column: "status", Type: query.FieldString, Filterable: true},
			{Name: "createdBy", Column: "created_by", Type: query.FieldString, Filterable: true},
			{Name: "createdAt", Column: columnCreatedAt, Type: query.FieldTime, Filterable: true, Sortable: true},
			{Name: "updatedAt", Column: "updated_at", Type: query.FieldTime, Sortable: true},
			{Name: "revision", Column: "revision", Type: query.FieldNumber, Hidden: true},
		},
		KeywordFields: []query.KeywordField{
			{Column: "title"},
			{Column: "description"},
			{Column: "destination"},
			{Column: "city"},
			{Column: "country"},
		},
		DefaultSort: newestFirst,
	}
}

var reservationVoyage = &query.Relation{Table: "voyages", LocalKey: "voyage_id", ForeignKey: "id"}

// ReservationSchema is the list allow-list for reservations. Keyword search
// also reaches the referenced voyage's text.
func ReservationSchema() query.Schema {
	return query.Schema{
		Fields: []query.Field{
			{Name: "id", Column: "id", Type: query.FieldUUID, Filterable: true},
			{Name: "voyage", Column: "voyage_id", Type: query.FieldUUID, Filterable: true},
			{Name: "user", Column: "user_id", Type: query.FieldString, Filterable: true},
			{Name: "partySize", Column: "party_size", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "totalPrice", Column: "total_price", Type: query.FieldNumber, Filterable: true, Sortable: true},
			{Name: "specialRequests", Column: "special_requests", Type: query.FieldString},
			{Name: "phone", Column: "phone", Type: query.FieldString, Filterable: true},
			{Name: "status", Column: "status", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "paymentStatus", Column: "payment_status", Type: query.FieldString, Filterable: true, Sortable: true},
			{Name: "active", Column: columnActive, Type: query.FieldBool, Filterable: true},
			{Name: "createdAt", Column: columnCreatedAt, Type: query.FieldTime, Filterable: true, Sortable: true},
			{Name: "updatedAt", Column: "updated_at", Type: query.FieldTime, Sortable: true},
			{Name: "revision", Column: "revision", Type: query.FieldNumber, Hidden: true},
		},
		KeywordFields: []query.KeywordField{
			{Column: "special_requests"},
			{Column: "phone"},
			{Column: "title", Via: reservationVoyage},
			{Column: "description", Via: reservationVoyage},
		},
		DefaultSort: newestFirst,
	}
}

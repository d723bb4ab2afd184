package orderstats

const queryType = "OrderStats"

// Query represents the intent to fetch the live order statistics.
type Query struct{}

// BuildQuery creates a new Query.
func BuildQuery() Query {
	return Query{}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

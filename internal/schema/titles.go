package schema

// TitleField is the column logged for every row that is sent.
const TitleField = "title"

// Titles is the fixed layout of the enriched titles table.
var Titles = Schema{
	{Name: "show_id", Type: String},
	{Name: "type", Type: String},
	{Name: "title", Type: String},
	{Name: "director", Type: String},
	{Name: "cast", Type: String},
	{Name: "country", Type: String},
	{Name: "date_added", Type: String},
	{Name: "release_year", Type: Integer},
	{Name: "rating", Type: String},
	{Name: "duration", Type: String},
	{Name: "listed_in", Type: String},
	{Name: "description", Type: String},
	{Name: "tmdb_vote_average", Type: Float},
	{Name: "tmdb_vote_count", Type: Integer},
	{Name: "budget", Type: Integer},
	{Name: "revenue", Type: Integer},
	{Name: "popularity", Type: Float},
	{Name: "primary_country", Type: String},
	{Name: "primary_genre", Type: String},
}

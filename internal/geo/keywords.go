package geo

// defaultForeignKeywords lists non-region place names whose presence,
// without Nordic/EU response context, marks an incident as out of scope.
// Carried over from the curated list the original DroneWatch ingestion
// pipeline used (ingestion/geographic_analyzer.py), expanded to the
// European scope this service uses.
var defaultForeignKeywords = []string{
	"ukraine", "ukrainian", "kyiv", "kiev", "odesa", "kharkiv", "lviv",
	"russia", "russian", "moscow",
	"belarus", "belarusian", "minsk",
	"china", "beijing", "shanghai",
	"japan", "tokyo",
	"korea", "seoul",
	"india", "delhi", "mumbai",
	"israel", "gaza", "tel aviv", "jerusalem",
	"iran", "tehran",
	"syria", "damascus",
	"iraq", "baghdad",
}

// defaultNordicContextMarkers indicate a Nordic/European response TO a
// foreign event, rather than the event itself occurring here.
var defaultNordicContextMarkers = []string{
	"denmark responds", "norwegian authorities", "swedish defense", "finnish government",
	"nordic", "scandinavian",
	"danish foreign minister", "norwegian prime minister", "swedish foreign office",
	"meets in copenhagen", "summit in oslo", "conference in stockholm",
	"nordic cooperation", "nordic ministers",
	"denmark comments", "norway reacts", "sweden responds", "finland addresses",
	"eu summit", "nato meeting",
}

// defaultInScopeCities is a whitelist of cities within the default region
// bounds whose presence boosts scope confidence.
var defaultInScopeCities = []string{
	"copenhagen", "aarhus", "odense", "aalborg", "esbjerg",
	"oslo", "bergen", "trondheim", "stavanger",
	"stockholm", "gothenburg", "malmo", "uppsala",
	"helsinki", "espoo", "tampere", "turku",
	"berlin", "munich", "hamburg", "frankfurt",
	"paris", "amsterdam", "brussels", "warsaw",
}

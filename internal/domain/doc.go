// Package domain models bird observation records from the National Capital
// Region Network (NCRN) forest and grassland bird surveys.
//
// # Data Source
//
// Records live in a single relational table (BirdObservations by default),
// one row per bird detected during a point count. The store reports column
// types loosely: counts and dates frequently arrive as text, and every value
// may be NULL. The adapter layer normalizes each value to a [Field] before
// it reaches this package.
//
// # Survey Conventions
//
// Counts:
//
//	Initial_Three_Min_Cnt is the number of individuals detected during the
//	first three minutes of the count. It is nominally an integer but stored
//	as text; anything that does not parse as a finite number is unusable.
//
// Dates:
//
//	Date is the survey date, normally "2006-01-02". Exports from other tools
//	use "01/02/2006", "2006/01/02", compact "20060102", "May 4, 2021",
//	"04-May-2021", or a timestamp with or without seconds. A UTC offset is
//	dropped and the local reading kept. Impossible dates ("2021-02-30") are
//	unusable.
//
// Species:
//
//	Scientific_Name may be NULL for unidentified detections; those are
//	grouped under [UnknownSpecies]. An empty string is kept as recorded.
//
// Optional columns:
//
//	Temperature, Humidity and Wind are survey-time weather readings and
//	PIF_Watchlist_Status is the Partners in Flight watchlist flag. Older
//	extracts omit them, so consumers check [Table.HasColumn] first.
//
// # Cleaning
//
// [Clean] applies, in order: parse the count, drop rows without one, parse
// the date, drop rows without one, derive Year and Month, and fill missing
// species names. Dropped rows are never reported as errors, only tallied in
// the table's [DropReport]. The transformation is idempotent: cleaning the
// raw form of a cleaned table ([Table.Raw]) yields the same observations.
package domain

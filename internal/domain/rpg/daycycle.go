package rpg

// TimeCycle is the in-world day split into phases. One turn advances one
// phase.
var TimeCycle = []string{"morning", "afternoon", "evening", "night"}

// DayFor converts elapsed turn units into a 1-based day number.
func DayFor(units int) int {
	return 1 + units/len(TimeCycle)
}

// TimeOfDayFor converts elapsed turn units into the current phase.
func TimeOfDayFor(units int) string {
	return TimeCycle[units%len(TimeCycle)]
}

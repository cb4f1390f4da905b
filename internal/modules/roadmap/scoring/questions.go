package scoring

type QuestionKind string

const (
	KindScale  QuestionKind = "scale"
	KindYesNo  QuestionKind = "yes_no"
	KindChoice QuestionKind = "choice"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Option struct {
	Value string  `json:"value"`
	Label string  `json:"label"`
	Score float64 `json:"-"`
}

type Advice struct {
	Title  string
	Detail string
}

type Question struct {
	ID       string       `json:"id"`
	Category string       `json:"category"`
	Text     string       `json:"text"`
	Kind     QuestionKind `json:"kind"`
	Weight   float64      `json:"weight"`
	Options  []Option     `json:"options,omitempty"`
	Advice   Advice       `json:"-"`
}

const maxWeight = 3

var categories = []Category{
	{ID: "climate_control", Name: "Climate Control"},
	{ID: "irrigation", Name: "Irrigation & Fertigation"},
	{ID: "pest_management", Name: "Pest Management"},
	{ID: "energy", Name: "Energy"},
	{ID: "labor", Name: "Labor"},
	{ID: "marketing", Name: "Marketing & Sales"},
	{ID: "finance", Name: "Finance"},
}

var questions = []Question{
	{
		ID: "cc_monitoring", Category: "climate_control", Kind: KindScale, Weight: 3,
		Text:   "How consistently do you monitor temperature and humidity in every zone?",
		Advice: Advice{"Add continuous climate sensing", "Install logging sensors in each zone and review daily min/max readings to catch cold spots and condensation before they cost a crop."},
	},
	{
		ID: "cc_automation", Category: "climate_control", Kind: KindChoice, Weight: 2,
		Text: "How are vents, fans and heaters controlled?",
		Options: []Option{
			{Value: "manual", Label: "Manually", Score: 0},
			{Value: "thermostat", Label: "Individual thermostats", Score: 0.5},
			{Value: "controller", Label: "Integrated environmental controller", Score: 1},
		},
		Advice: Advice{"Move to an integrated climate controller", "A single controller coordinating vents, fans and heat reduces swings and labor; many state energy programs co-fund the upgrade."},
	},
	{
		ID: "cc_dehumidify", Category: "climate_control", Kind: KindYesNo, Weight: 1,
		Text:   "Do you run a dehumidification strategy (heat-and-vent or dehumidifiers) at night?",
		Advice: Advice{"Plan night-time dehumidification", "Schedule a heat-and-vent cycle around sunset to keep leaves dry and lower botrytis pressure."},
	},
	{
		ID: "ir_system", Category: "irrigation", Kind: KindChoice, Weight: 2,
		Text: "Which irrigation method do you mainly use?",
		Options: []Option{
			{Value: "hand", Label: "Hand watering", Score: 0.2},
			{Value: "overhead", Label: "Overhead booms or sprinklers", Score: 0.5},
			{Value: "drip", Label: "Drip or ebb-and-flow", Score: 0.9},
			{Value: "recirculating", Label: "Recirculating hydroponics", Score: 1},
		},
		Advice: Advice{"Upgrade the irrigation method", "Drip or ebb-and-flow delivers water to the root zone, saving water and fertilizer compared with hand or overhead watering."},
	},
	{
		ID: "ir_testing", Category: "irrigation", Kind: KindScale, Weight: 2,
		Text:   "How regularly do you test irrigation water and nutrient solution (pH, EC)?",
		Advice: Advice{"Test pH and EC on a schedule", "Weekly pH and EC checks of source water and runoff catch nutrient lockout early; log results next to crop observations."},
	},
	{
		ID: "ir_water_source", Category: "irrigation", Kind: KindYesNo, Weight: 1,
		Text:   "Do you capture rainwater or reuse runoff?",
		Advice: Advice{"Capture or reuse water", "Rainwater collection or treated runoff reuse lowers water bills and buffers against drought restrictions."},
	},
	{
		ID: "pm_scouting", Category: "pest_management", Kind: KindScale, Weight: 3,
		Text:   "How systematic is your pest scouting (sticky cards, weekly walk-throughs, records)?",
		Advice: Advice{"Formalize weekly scouting", "Walk every bay weekly, change sticky cards on a schedule and record counts so thresholds drive treatments instead of calendar sprays."},
	},
	{
		ID: "pm_biocontrol", Category: "pest_management", Kind: KindYesNo, Weight: 2,
		Text:   "Do you use biological controls (predatory mites, parasitic wasps, beneficial nematodes)?",
		Advice: Advice{"Introduce biological controls", "Start with a single pest such as thrips or whitefly and a supplier's release program; biologicals slow resistance and reduce re-entry intervals."},
	},
	{
		ID: "pm_sanitation", Category: "pest_management", Kind: KindScale, Weight: 1,
		Text:   "How strict is sanitation between crops (weed control, disinfecting benches, quarantine of new plants)?",
		Advice: Advice{"Tighten sanitation between crops", "Clear weeds under benches, disinfect surfaces between turns and hold incoming plant material in a quarantine area."},
	},
	{
		ID: "en_audit", Category: "energy", Kind: KindYesNo, Weight: 2,
		Text:   "Have you had an energy audit in the last three years?",
		Advice: Advice{"Book an energy audit", "Utility and USDA REAP programs often cover audits; the report is usually required for efficiency grant applications."},
	},
	{
		ID: "en_curtains", Category: "energy", Kind: KindYesNo, Weight: 2,
		Text:   "Do you use thermal or shade curtains?",
		Advice: Advice{"Install energy curtains", "Retractable thermal curtains can cut heating use by a quarter or more and double as summer shade."},
	},
	{
		ID: "en_lighting", Category: "energy", Kind: KindChoice, Weight: 1,
		Text: "What supplemental lighting do you run?",
		Options: []Option{
			{Value: "none", Label: "None needed", Score: 1},
			{Value: "hps", Label: "High-pressure sodium", Score: 0.3},
			{Value: "mixed", Label: "Mix of HPS and LED", Score: 0.6},
			{Value: "led", Label: "LED", Score: 1},
		},
		Advice: Advice{"Plan an LED retrofit", "LED fixtures use markedly less electricity than HPS and emit less heat; phase the retrofit by zone to spread the cost."},
	},
	{
		ID: "lb_sops", Category: "labor", Kind: KindScale, Weight: 2,
		Text:   "How well are key tasks documented in written procedures?",
		Advice: Advice{"Write standard operating procedures", "Document the ten most frequent tasks with photos; it shortens onboarding and keeps quality steady when staff change."},
	},
	{
		ID: "lb_retention", Category: "labor", Kind: KindScale, Weight: 2,
		Text:   "How easy is it to retain seasonal and year-round staff?",
		Advice: Advice{"Work on staff retention", "Cross-train workers, offer predictable schedules and look at H-2A or local workforce programs listed in the resource library."},
	},
	{
		ID: "lb_safety", Category: "labor", Kind: KindYesNo, Weight: 1,
		Text:   "Do you run documented worker safety and pesticide handling training?",
		Advice: Advice{"Schedule safety training", "Worker Protection Standard training is required for pesticide handlers; keep sign-in sheets with the training date."},
	},
	{
		ID: "mk_channels", Category: "marketing", Kind: KindChoice, Weight: 2,
		Text: "How many sales channels do you sell through?",
		Options: []Option{
			{Value: "one", Label: "One", Score: 0.2},
			{Value: "two", Label: "Two", Score: 0.6},
			{Value: "three_plus", Label: "Three or more", Score: 1},
		},
		Advice: Advice{"Diversify sales channels", "Add a channel such as farmers markets, CSA shares, grocery or wholesale so a single buyer cannot sink the season."},
	},
	{
		ID: "mk_pricing", Category: "marketing", Kind: KindScale, Weight: 2,
		Text:   "How confident are you that prices cover full production cost?",
		Advice: Advice{"Price from full production cost", "Track cost per square foot per week and set prices from that floor; revisit after every energy or wage change."},
	},
	{
		ID: "mk_online", Category: "marketing", Kind: KindYesNo, Weight: 1,
		Text:   "Do you take orders or promote products online?",
		Advice: Advice{"Build an online presence", "A simple ordering page or regular social posts with availability lists keeps buyers engaged between seasons."},
	},
	{
		ID: "fi_records", Category: "finance", Kind: KindScale, Weight: 3,
		Text:   "How complete are your financial records (monthly P&L, crop-level costs)?",
		Advice: Advice{"Keep monthly crop-level records", "Monthly profit-and-loss and cost per crop show which crops earn their bench space; lenders and grant programs ask for them."},
	},
	{
		ID: "fi_grants", Category: "finance", Kind: KindYesNo, Weight: 1,
		Text:   "Have you applied for a grant or cost-share program in the last two years?",
		Advice: Advice{"Apply for grants and cost-share", "Filter the grants library by your state and focus area; specialty crop and energy programs open every year."},
	},
	{
		ID: "fi_reserve", Category: "finance", Kind: KindScale, Weight: 2,
		Text:   "How prepared are you for an unexpected expense such as a heater failure?",
		Advice: Advice{"Build an operating reserve", "Set aside a reserve covering at least one month of operating costs and review crop insurance options."},
	},
}

// Categories returns the assessment categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Questions returns the question bank in display order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

var questionIndex = func() map[string]*Question {
	m := make(map[string]*Question, len(questions))
	for i := range questions {
		m[questions[i].ID] = &questions[i]
	}
	return m
}()

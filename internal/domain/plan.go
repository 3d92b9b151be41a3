package domain

// Plan is a named, fixed resource bundle offered for purchase.
type Plan struct {
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	RAMGB  int    `json:"ram"`
	CPU    int    `json:"cpu"`
	DiskGB int    `json:"disk"`
	Price  string `json:"price"`
	Color  string `json:"color"`
}

// Spec returns the plan's resource bundle.
func (p Plan) Spec() ResourceSpec {
	return ResourceSpec{RAMGB: p.RAMGB, CPU: p.CPU, DiskGB: p.DiskGB}
}

// Plans is the static tier catalog, read-only at runtime.
var Plans = map[string]Plan{
	"starter": {
		Name:   "Starter Plan",
		Emoji:  "🔰",
		RAMGB:  4,
		CPU:    2,
		DiskGB: 50,
		Price:  "₹49/month",
		Color:  "#00ff88",
	},
	"basic": {
		Name:   "Basic Plan",
		Emoji:  "⚡",
		RAMGB:  8,
		CPU:    4,
		DiskGB: 100,
		Price:  "₹99/month",
		Color:  "#0099ff",
	},
	"pro": {
		Name:   "Pro Plan",
		Emoji:  "🚀",
		RAMGB:  16,
		CPU:    6,
		DiskGB: 200,
		Price:  "₹199/month",
		Color:  "#ffaa00",
	},
	"enterprise": {
		Name:   "Enterprise Plan",
		Emoji:  "💎",
		RAMGB:  32,
		CPU:    8,
		DiskGB: 300,
		Price:  "₹250/month",
		Color:  "#ff3300",
	},
	"ultimate": {
		Name:   "Ultimate Plan",
		Emoji:  "👑",
		RAMGB:  64,
		CPU:    12,
		DiskGB: 300,
		Price:  "₹399/month",
		Color:  "#aa00aa",
	},
}

// PlanByKey resolves a plan from the catalog.
func PlanByKey(key string) (Plan, bool) {
	plan, ok := Plans[key]
	return plan, ok
}

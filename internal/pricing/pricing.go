package pricing

// Fabric roles used to filter which catalog fabrics are offered on a line.
const (
	RoleCurtain  = "cortina"
	RoleLining   = "forro"
	RoleBlackout = "blackout"
)

// Fabric is one entry of the fabric catalog. A fabric with zero roll width and
// zero price behaves as "none".
type Fabric struct {
	ID             string
	RollWidth      float64
	WholesalePrice float64
	Categories     []string
	Favorite       bool
}

// OfferedFor reports whether the fabric may be chosen for the given role.
// Fabrics without categories are offered for every role.
func (f Fabric) OfferedFor(role string) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == role {
			return true
		}
	}
	return false
}

// Tables is an immutable snapshot of the base pricing data a calculation reads.
// Callers build a new snapshot instead of mutating one in place.
type Tables struct {
	Fabrics  map[string]Fabric
	Assembly AssemblyTable
	Tracks   map[string]float64
}

// Fabric returns the catalog entry for id. "None" ids and unknown ids yield
// the zero Fabric, which computes to zero meters and zero cost.
func (t Tables) Fabric(id string) Fabric {
	if IsNone(id) {
		return Fabric{}
	}
	return t.Fabrics[id]
}

// TrackPrice returns the price of the track option, or 0 when none is selected.
func (t Tables) TrackPrice(id string) float64 {
	if IsNone(id) {
		return 0
	}
	return nonNegative(t.Tracks[id])
}

// LineInput holds the parameters of one fabric/curtain line.
type LineInput struct {
	Width            float64
	Height           float64
	CurtainFullness  float64
	BlackoutFullness float64
	CurtainFabricID  string
	LiningFabricID   string
	BlackoutFabricID string
	TrackID          string
	InstallationFee  float64
	MiscFee          float64
	MarkupPercent    float64
}

// Yields holds the linear meters required per fabric role.
type Yields struct {
	Curtain  float64
	Lining   float64
	Blackout float64
}

// Breakdown contains the intermediate values of a line calculation.
type Breakdown struct {
	CurtainCost     float64
	LiningCost      float64
	BlackoutCost    float64
	AssemblyCost    float64
	TrackCost       float64
	RawCost         float64
	MarkupPercent   float64
	MarkedUpCost    float64
	InstallationFee float64
	MiscFee         float64
}

// LineResult groups the full output of a line calculation.
type LineResult struct {
	Yields      Yields
	Composition Composition
	Breakdown   Breakdown
	BasePrice   float64
}

// Calculate computes fabric quantities and the base (cash) price of a line.
//
// Fabric, assembly and track costs are marked up; installation and misc fees
// pass through at face value. Missing table entries price as 0.
func Calculate(in LineInput, tables Tables, cfg Config) LineResult {
	cfg = cfg.withDefaults()
	in = in.normalized(cfg)

	curtain := tables.Fabric(in.CurtainFabricID)
	lining := tables.Fabric(in.LiningFabricID)
	blackout := tables.Fabric(in.BlackoutFabricID)

	yields := Yields{
		Curtain:  ComputeYield(in.Width, in.Height, in.CurtainFullness, curtain.RollWidth, cfg.HemAllowance),
		Lining:   ComputeYield(in.Width, in.Height, in.CurtainFullness, lining.RollWidth, cfg.HemAllowance),
		Blackout: ComputeYield(in.Width, in.Height, in.BlackoutFullness, blackout.RollWidth, cfg.HemAllowance),
	}

	composition := ResolveComposition(
		!IsNone(in.CurtainFabricID),
		!IsNone(in.LiningFabricID),
		!IsNone(in.BlackoutFabricID),
	)

	curtainCost := yields.Curtain * nonNegative(curtain.WholesalePrice)
	liningCost := yields.Lining * nonNegative(lining.WholesalePrice)
	blackoutCost := yields.Blackout * nonNegative(blackout.WholesalePrice)
	assemblyCost := LookupAssemblyPrice(composition.Label(), in.Height, tables.Assembly, cfg)
	trackCost := tables.TrackPrice(in.TrackID)

	rawCost := curtainCost + liningCost + blackoutCost + assemblyCost + trackCost
	markedUp := rawCost * (1.0 + in.MarkupPercent/100.0)
	base := markedUp + in.InstallationFee + in.MiscFee

	return LineResult{
		Yields:      yields,
		Composition: composition,
		Breakdown: Breakdown{
			CurtainCost:     curtainCost,
			LiningCost:      liningCost,
			BlackoutCost:    blackoutCost,
			AssemblyCost:    assemblyCost,
			TrackCost:       trackCost,
			RawCost:         rawCost,
			MarkupPercent:   in.MarkupPercent,
			MarkedUpCost:    markedUp,
			InstallationFee: in.InstallationFee,
			MiscFee:         in.MiscFee,
		},
		BasePrice: base,
	}
}

// Rounded returns a copy with meters rounded to 3 decimals and money to cents,
// the precision used for display and persistence.
func (r LineResult) Rounded() LineResult {
	r.Yields = Yields{
		Curtain:  Round(r.Yields.Curtain, 3),
		Lining:   Round(r.Yields.Lining, 3),
		Blackout: Round(r.Yields.Blackout, 3),
	}
	b := &r.Breakdown
	b.CurtainCost = Round(b.CurtainCost, 2)
	b.LiningCost = Round(b.LiningCost, 2)
	b.BlackoutCost = Round(b.BlackoutCost, 2)
	b.AssemblyCost = Round(b.AssemblyCost, 2)
	b.TrackCost = Round(b.TrackCost, 2)
	b.RawCost = Round(b.RawCost, 2)
	b.MarkedUpCost = Round(b.MarkedUpCost, 2)
	b.InstallationFee = Round(b.InstallationFee, 2)
	b.MiscFee = Round(b.MiscFee, 2)
	r.BasePrice = Round(r.BasePrice, 2)
	return r
}

func (in LineInput) normalized(cfg Config) LineInput {
	in.Width = nonNegative(in.Width)
	in.Height = nonNegative(in.Height)
	in.CurtainFullness = nonNegative(in.CurtainFullness)
	in.BlackoutFullness = nonNegative(in.BlackoutFullness)
	in.MarkupPercent = nonNegative(in.MarkupPercent)
	if in.CurtainFullness <= 0 {
		in.CurtainFullness = 1
	}
	if in.BlackoutFullness <= 0 {
		in.BlackoutFullness = 1
	}
	if in.MarkupPercent <= 0 {
		in.MarkupPercent = cfg.DefaultMarkupPercent
	}
	in.InstallationFee = nonNegative(in.InstallationFee)
	in.MiscFee = nonNegative(in.MiscFee)
	return in
}

func nonNegative(v float64) float64 {
	if v < 0 || !finite(v) {
		return 0
	}
	return v
}

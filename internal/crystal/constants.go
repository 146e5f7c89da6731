package crystal

// CODATA 2018.
const (
	PlanckEV       = 4.135667696e-15 // eV s
	Planck         = 6.62607015e-34  // J s
	SpeedOfLight   = 299792458.0     // m/s
	ElectronRadius = 2.8179403262e-15
	Boltzmann      = 1.380649e-23
	Avogadro       = 6.02214076e23
)

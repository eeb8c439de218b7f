// Package results owns the append-only result sink: one flattened row per
// trial (or per sweep crossing), plus optional trajectory persistence for
// downstream visualization.
package results

import "strconv"

// Row is one flattened trial record. Column order is fixed and matches
// Header.
type Row struct {
	MCompanion float64 // Msun
	MNS        float64
	MHe        float64
	APre       float64 // Rsun
	APost      float64
	EPre       float64
	EPost      float64
	Separation float64 // Rsun
	R0         float64 // initial galactocentric radius, kpc
	R0Proj     float64
	GalTheta   float64 // placement angles, rad
	GalPhi     float64
	VKick      float64 // km/s
	KickTheta  float64 // rad
	KickPhi    float64
	Anomaly    float64 // mean anomaly at the SN, rad
	OmegaOrb   float64 // rad/s
	VDirAlpha  float64 // tangential direction of the circular component, rad
	VDirPsi    float64 // polar direction of the systemic component, rad
	VSys       float64 // km/s
	MergerTime float64 // Gyr
	RMerge     float64 // kpc
	RMergeProj float64
	VFinal     float64 // km/s
	VFx        float64
	VFy        float64
	VFz        float64
	Flag       int
}

func Header() []string {
	return []string{
		"m1", "m2", "mhe",
		"a_pre", "a_post", "e_pre", "e_post",
		"sep", "r0", "r0_proj", "gal_theta", "gal_phi",
		"vkick", "kick_theta", "kick_phi", "anomaly",
		"omega_orb", "vdir_alpha", "vdir_psi", "vsys",
		"t_merge", "r_merge", "r_merge_proj",
		"vfinal", "vfx", "vfy", "vfz",
		"flag",
	}
}

func (r Row) Strings() []string {
	vals := []float64{
		r.MCompanion, r.MNS, r.MHe,
		r.APre, r.APost, r.EPre, r.EPost,
		r.Separation, r.R0, r.R0Proj, r.GalTheta, r.GalPhi,
		r.VKick, r.KickTheta, r.KickPhi, r.Anomaly,
		r.OmegaOrb, r.VDirAlpha, r.VDirPsi, r.VSys,
		r.MergerTime, r.RMerge, r.RMergeProj,
		r.VFinal, r.VFx, r.VFy, r.VFz,
	}
	out := make([]string, 0, len(vals)+1)
	for _, v := range vals {
		out = append(out, strconv.FormatFloat(v, 'g', 8, 64))
	}
	return append(out, strconv.Itoa(r.Flag))
}

package config

// Default returns the repository default configuration. Path fields are left
// unexpanded; Load normalizes them.
func Default() Config {
	return Config{
		Paths: Paths{
			AcquisitionDir:   "~/scanimage_ophys/data",
			BehaviorVideoDir: "~/mvr/data",
			ManifestDir:      "~/.local/share/mesoprep/manifests",
			LogDir:           "~/.local/share/mesoprep/logs",
		},
		Timing: Timing{
			TriggerLine:  5,
			SyncGlob:     "*.h5",
			ExcludeToken: "full_field",
		},
		Modalities: Modalities{
			Pophys: []string{
				"*_averaged_depth.tiff",
				"*_averaged_surface.tiff",
				"*cortical_z_stack*.tiff",
				"*fullfield.roi",
				"*fullfield.tiff",
				"*local_z_stack*.tiff",
				"*platform.json",
				"*reticle.tif",
				"*surface.roi",
				"*timeseries.roi",
				"*timeseries.tiff",
				"*vasculature.tif",
				"*_timeseries_Motion*.csv",
				"*_timeseries_Motion_Corrected*.csv",
				"parent_session_depth_images/*_depth.tif",
				"parent_session_surface_images/*_surface.tif",
				"sorted_local_z_stacks/*.tif",
			},
			Behavior: []string{
				"*stim.pkl",
				"*stim_table.csv",
				"*sync.h5",
			},
			BehaviorVideos: []string{
				"*Behavior*.mp4",
				"*Face*.mp4",
				"*Eye*.mp4",
				"*Nose*.mp4",
				"*Behavior*.json",
				"*Face*.json",
				"*Eye*.json",
				"*Nose*.json",
			},
		},
		Transfer: Transfer{
			Destination:            "/allen/aind/scratch/2p-working-group/data-uploads",
			ScheduleTime:           "03:00:00",
			Platform:               "multiplane-ophys",
			TransferServiceJobType: "multi_pophys_suite2p_cellpose",
			Schemas: []string{
				"session.json",
				"data_description.json",
			},
		},
		Projects: Projects{
			Investigators: map[string][]string{
				"Learning mFISH-V1omFISH": {
					"Marina Garrett",
					"Peter Groblewski",
					"Anton Arkhipov",
					"Omid Zobeiri",
				},
				"OpenScope": {"Jerome Lecoq"},
			},
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

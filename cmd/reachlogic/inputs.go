// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// inputs are the dataset and snapshot flags shared by subcommands.
type inputs struct {
	dataPath     string
	snapshotPath string
}

func (in *inputs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.dataPath, "data", "d", "", "dataset file (JSON or YAML)")
	cmd.Flags().StringVarP(&in.snapshotPath, "snapshot", "s", "", "snapshot file (JSON); empty starts from nothing")
	_ = cmd.MarkFlagRequired("data")
}

// load reads the dataset and the snapshot. Without a snapshot file the
// snapshot is empty, for the dataset's game and player slot 1.
func (in *inputs) load() (*static.Data, *snapshot.Snapshot, error) {
	data, err := static.LoadFile(in.dataPath)
	if err != nil {
		return nil, nil, err
	}
	if in.snapshotPath == "" {
		return data, snapshot.New(data.Game, 1), nil
	}
	snap, err := snapshot.LoadFile(in.snapshotPath)
	if err != nil {
		return nil, nil, err
	}
	if snap.Game != "" && data.Game != "" && snap.Game != data.Game {
		return nil, nil, oops.Code("GAME_MISMATCH").
			With("snapshot_game", snap.Game).
			With("dataset_game", data.Game).
			Errorf("snapshot is for %q but dataset is for %q", snap.Game, data.Game)
	}
	return data, snap, nil
}

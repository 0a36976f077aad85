// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package replay_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/reachlogic/internal/logic/reach"
	"github.com/holomush/reachlogic/internal/logic/snapshot"
	"github.com/holomush/reachlogic/internal/logic/static"
	"github.com/holomush/reachlogic/internal/replay"
	"github.com/holomush/reachlogic/pkg/errutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func loadDataset() *static.Data {
	d, err := static.LoadFile("testdata/dataset.yaml")
	Expect(err).NotTo(HaveOccurred())
	return d
}

func verifyFile(v *replay.Verifier, path string) (*replay.Report, error) {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(f.Close)
	return v.VerifyReader(context.Background(), snapshot.New("Test Game", 1), f)
}

var _ = Describe("Verifier", func() {
	var (
		data     *static.Data
		verifier *replay.Verifier
	)

	BeforeEach(func() {
		data = loadDataset()
		verifier = replay.NewVerifier(data, replay.WithLogger(quiet))
	})

	Describe("a recorded playthrough", func() {
		It("matches every recorded accessible set exactly", func() {
			report, err := verifyFile(verifier, "testdata/playthrough.jsonl")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OK()).To(BeTrue())
			Expect(report.Steps).To(HaveLen(5))
			Expect(report.Game).To(Equal("Test Game"))
		})

		It("skips steps without a recorded set", func() {
			report, err := verifyFile(verifier, "testdata/playthrough.jsonl")
			Expect(err).NotTo(HaveOccurred())

			var verified []int
			for _, step := range report.Steps {
				if step.Verified {
					verified = append(verified, step.Index)
				}
			}
			Expect(verified).To(Equal([]int{1, 2, 3, 5}))
		})

		It("advances the snapshot generation once per event", func() {
			report, err := verifyFile(verifier, "testdata/playthrough.jsonl")
			Expect(err).NotTo(HaveOccurred())
			for i, step := range report.Steps {
				Expect(step.Generation).To(Equal(uint64(i + 1)))
			}
		})

		It("gives every run a distinct id", func() {
			other := replay.NewVerifier(data)
			Expect(other.RunID()).NotTo(Equal(verifier.RunID()))
		})
	})

	Describe("a diverging playthrough", func() {
		It("reports missing and extra locations per step", func() {
			report, err := verifyFile(verifier, "testdata/mismatch.jsonl")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OK()).To(BeFalse())
			Expect(report.Mismatches).To(Equal(2))

			Expect(report.Steps[0].Mismatched()).To(BeFalse())
			Expect(report.Steps[1].Extra).To(Equal([]string{"Shop"}))
			Expect(report.Steps[1].Missing).To(BeEmpty())
			Expect(report.Steps[2].Missing).To(Equal([]string{"Pedestal"}))
			Expect(report.Steps[2].Extra).To(BeEmpty())
		})
	})

	Describe("settings and flags", func() {
		It("applies state updates before computing", func() {
			events := []replay.Event{
				{Type: replay.EventStateUpdate, Flags: []string{"checked:Shop"}, Accessible: []string{}},
			}
			report, err := verifier.Verify(context.Background(), snapshot.New("Test Game", 1), events)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OK()).To(BeTrue())
		})
	})

	Describe("propagation errors", func() {
		It("aborts the run", func() {
			v := replay.NewVerifier(data,
				replay.WithLogger(quiet),
				replay.WithReachOptions(reach.WithStartRegions("Nowhere")),
			)
			events := []replay.Event{{Type: replay.EventStateUpdate, Accessible: []string{"Shop"}}}
			_, err := v.Verify(context.Background(), snapshot.New("Test Game", 1), events)
			Expect(err).To(HaveOccurred())
			Expect(errutil.HasCode(err, static.CodeMissingStaticData)).To(BeTrue())
		})
	})

	Describe("recorded generations", func() {
		It("accepts events recorded at the replayed generation", func() {
			log := `{"type":"state_update","generation":1,"accessible_locations":["Shop"]}
{"type":"state_update","inventory":{"Key":1},"generation":2,"accessible_locations":["Chest","Shop"]}`
			report, err := verifier.VerifyReader(context.Background(), snapshot.New("Test Game", 1), strings.NewReader(log))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OK()).To(BeTrue())
		})

		It("rejects a log with a skipped event", func() {
			log := `{"type":"state_update","generation":1,"accessible_locations":["Shop"]}
{"type":"state_update","inventory":{"Key":1},"generation":3,"accessible_locations":["Chest","Shop"]}`
			_, err := verifier.VerifyReader(context.Background(), snapshot.New("Test Game", 1), strings.NewReader(log))
			Expect(errutil.HasCode(err, replay.CodeGenerationMismatch)).To(BeTrue())
		})
	})

	Describe("run ids", func() {
		It("stamps a fixed run id on the report", func() {
			id := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FAV")
			v := replay.NewVerifier(data, replay.WithRunID(id), replay.WithLogger(quiet))
			report, err := v.Verify(context.Background(), snapshot.New("Test Game", 1), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.RunID).To(Equal(id))
			Expect(report.Steps).To(BeEmpty())
		})
	})
})

var _ = Describe("ReadEvents", func() {
	It("decodes state updates and checks", func() {
		events, err := replay.ReadEvents(strings.NewReader(
			`{"type":"state_update","inventory":{"Bow":1},"flags":["agahnim"],"settings":{"mode":"open"}}` + "\n" +
				`{"type":"checked_location","location":"Chest","accessible_locations":[]}` + "\n",
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Accessible).To(BeNil())
		Expect(events[1].Accessible).NotTo(BeNil())
		Expect(events[1].Accessible).To(BeEmpty())
	})

	DescribeTable("rejects bad lines",
		func(input string) {
			_, err := replay.ReadEvents(strings.NewReader(input))
			Expect(err).To(HaveOccurred())
			Expect(errutil.HasCode(err, replay.CodeInvalidEvent)).To(BeTrue())
		},
		Entry("invalid JSON", `{"type":`),
		Entry("unknown type", `{"type":"teleport"}`),
		Entry("check without location", `{"type":"checked_location"}`),
	)
})

var _ = Describe("Event.Apply", func() {
	It("sets absolute counts on a new generation", func() {
		s := snapshot.New("Test Game", 1).WithItem("Arrow", 5)
		next := replay.Event{
			Type:      replay.EventStateUpdate,
			Inventory: map[string]int{"Arrow": 2, "Bomb": -1},
			Settings:  map[string]any{"mode": "inverted"},
		}.Apply(s)

		Expect(next.Count("Arrow")).To(Equal(2))
		Expect(next.Count("Bomb")).To(Equal(0))
		Expect(next.Generation).To(Equal(s.Generation + 1))
		Expect(s.Count("Arrow")).To(Equal(5))
		mode, _ := next.Setting("mode")
		Expect(mode).To(Equal("inverted"))
	})

	It("marks checked locations", func() {
		next := replay.Event{Type: replay.EventCheckedLocation, Location: "Chest"}.Apply(snapshot.New("Test Game", 1))
		Expect(next.IsChecked("Chest")).To(BeTrue())
	})
})

package sim

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nemd/internal/checkpoint"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/nemd"
)

var _ = ginkgo.Describe("Pipeline", func() {
	var (
		snap *checkpoint.Snapshot
		cfg  *config.Config
		p    *Pipeline
	)

	ginkgo.BeforeEach(func() {
		snap = chain()
		cfg = config.DefaultConfig()
		var err error
		p, err = New(snap, cfg, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("starts loaded", func() {
		Expect(p.Stage()).To(Equal(Loaded))
		Expect(p.Layout()).To(BeNil())
	})

	ginkgo.Context("once configured", func() {
		ginkgo.BeforeEach(func() {
			Expect(p.Configure()).To(Succeed())
		})

		ginkgo.It("keeps frozen and integrated atoms disjoint and complete", func() {
			freeze, main := p.Group("freeze"), p.Group("main")
			Expect(freeze.Count() + main.Count()).To(Equal(len(snap.Atoms)))
			for _, id := range main.IDs() {
				Expect(freeze.Has(id)).To(BeFalse())
			}
		})

		ginkgo.It("splits the interface into disjoint left and right slabs", func() {
			left, right, iface := p.Group("left"), p.Group("right"), p.Group("interface")
			for _, id := range left.IDs() {
				Expect(right.Has(id)).To(BeFalse())
			}
			Expect(iface.IDs()).To(ConsistOf(append(left.IDs(), right.IDs()...)))
		})

		ginkgo.It("keeps the thermostats clear of the interface", func() {
			for _, name := range []string{"hot", "cold"} {
				for _, id := range p.Group(name).IDs() {
					Expect(p.Group("interface").Has(id)).To(BeFalse())
					Expect(p.Group("freeze").Has(id)).To(BeFalse())
				}
			}
		})

		ginkgo.It("rejects a second configure", func() {
			Expect(p.Configure()).To(MatchError(nemd.ErrInvalidTransition))
		})

		ginkgo.It("ends evaluated after sampling", func() {
			_, err := p.Sample(context.Background(), memSink{})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Stage()).To(Equal(Evaluated))
		})
	})

	ginkgo.It("writes byte-identical dumps on every run", func() {
		first, second := memSink{}, memSink{}
		_, err := Run(context.Background(), snap, cfg, first, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = Run(context.Background(), snap, cfg, second, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(HaveLen(3))
		for name, buf := range first {
			Expect(second).To(HaveKey(name))
			Expect(buf.Bytes()).To(Equal(second[name].Bytes()))
		}
	})

	ginkgo.It("reports the slab counts the dumps contain", func() {
		sink := memSink{}
		report, err := Run(context.Background(), snap, cfg, sink, nil)
		Expect(err).NotTo(HaveOccurred())

		left, err := dump.ReadIDs(&sink[cfg.Dumps.Left].Buffer)
		Expect(err).NotTo(HaveOccurred())
		right, err := dump.ReadIDs(&sink[cfg.Dumps.Right].Buffer)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.NL).To(Equal(len(left)))
		Expect(report.NR).To(Equal(len(right)))
		Expect(report.Files).To(Equal([]string{cfg.Dumps.Left, cfg.Dumps.Right, cfg.Dumps.Interface}))
	})
})

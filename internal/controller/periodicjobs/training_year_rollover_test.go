package periodicjobs_test

import (
	"context"
	"errors"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apprenticelog/apprenticelog/internal/controller/periodicjobs"
	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/cache/inmemory"
	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
	"github.com/apprenticelog/apprenticelog/pkg/store"
	"github.com/apprenticelog/apprenticelog/pkg/store/mocks"
)

var _ = Describe("TrainingYearRolloverJob", func() {
	var (
		ctx   context.Context
		mem   *inmemory.InMemoryCache
		s     *store.CommentContextStore
		job   *periodicjobs.TrainingYearRolloverJob
		clock time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mem, err = inmemory.NewCache(nil)
		Expect(err).NotTo(HaveOccurred())
		s = store.New(mem, 0, nil)

		clock = time.Date(2020, time.August, 2, 8, 0, 0, 0, time.UTC)
		job = periodicjobs.NewTrainingYearRolloverJob(s, mem, nil, 0).
			WithClock(func() time.Time { return clock })
	})

	put := func(userID string, cc structs.CommentContext) {
		Expect(s.Put(ctx, userID, cc)).To(Succeed())
	}

	get := func(userID string) structs.CommentContext {
		cc, err := s.Get(ctx, userID)
		Expect(err).NotTo(HaveOccurred())
		return cc
	}

	setLastRun := func(at time.Time) {
		Expect(mem.Set(ctx, periodicjobs.RolloverLastRunKey, at.Format(time.RFC3339Nano), cache.NoExpiration)).To(Succeed())
	}

	lastRun := func() time.Time {
		val, err := mem.Get(ctx, periodicjobs.RolloverLastRunKey)
		Expect(err).NotTo(HaveOccurred())
		at, err := time.Parse(time.RFC3339Nano, val.(string))
		Expect(err).NotTo(HaveOccurred())
		return at
	}

	It("describes itself as a daily task by default", func() {
		Expect(job.GetName()).To(Equal(periodicjobs.TrainingYearRolloverJobName))
		Expect(job.GetInterval()).To(Equal(24 * time.Hour))

		custom := periodicjobs.NewTrainingYearRolloverJob(s, mem, nil, time.Hour)
		Expect(custom.GetInterval()).To(Equal(time.Hour))
	})

	It("only records its time on the first run", func() {
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))
		put("bea", structs.NewCommentContext("2018-08-01", 7, "Billing"))

		result, err := job.Rollover(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Updated).To(BeEmpty())
		Expect(get("adam").GetTrainingYear()).To(Equal(1))
		Expect(get("bea").GetTrainingYear()).To(Equal(7))
		Expect(lastRun()).To(BeTemporally("==", clock))
	})

	It("treats an unreadable last run as the first run", func() {
		Expect(mem.Set(ctx, periodicjobs.RolloverLastRunKey, "yesterday", cache.NoExpiration)).To(Succeed())
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))

		Expect(job.Run(ctx)).To(Succeed())

		Expect(get("adam").GetTrainingYear()).To(Equal(1))
		Expect(lastRun()).To(BeTemporally("==", clock))
	})

	It("adds one year per anniversary passed since the last run", func() {
		setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))
		put("bea", structs.NewCommentContext("2018-08-01", 3, "Billing"))
		put("carl", structs.NewCommentContext("15.09.2019", 1, "Ops"))

		result, err := job.Rollover(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Checked).To(Equal(3))
		Expect(result.Updated).To(Equal([]string{"adam", "bea"}))
		Expect(get("adam")).To(Equal(structs.NewCommentContext("01.08.2019", 2, "Platform")))
		Expect(get("bea").GetTrainingYear()).To(Equal(4))
		Expect(get("carl").GetTrainingYear()).To(Equal(1))
		Expect(lastRun()).To(BeTemporally("==", clock))
	})

	It("catches up on several missed anniversaries", func() {
		setLastRun(time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC))
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))

		clock = time.Date(2021, time.September, 1, 0, 0, 0, 0, time.UTC)
		Expect(job.Run(ctx)).To(Succeed())

		Expect(get("adam").GetTrainingYear()).To(Equal(3))
	})

	It("keeps zero and negative years as given", func() {
		setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		put("neg", structs.NewCommentContext("01.08.2019", -1, "Ops"))
		put("zero", structs.NewCommentContext("01.08.2019", 0, "Ops"))

		result, err := job.Rollover(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Updated).To(BeEmpty())
		Expect(get("neg").GetTrainingYear()).To(Equal(-1))
		Expect(get("zero").GetTrainingYear()).To(Equal(0))
	})

	It("keeps a repeated training year when no anniversary passed", func() {
		setLastRun(time.Date(2020, time.August, 1, 12, 0, 0, 0, time.UTC))
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))

		clock = time.Date(2020, time.September, 1, 8, 0, 0, 0, time.UTC)
		result, err := job.Rollover(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Updated).To(BeEmpty())
		Expect(get("adam").GetTrainingYear()).To(Equal(1))
	})

	It("moves a year forward once across repeated runs", func() {
		setLastRun(time.Date(2021, time.July, 30, 0, 0, 0, 0, time.UTC))
		put("adam", structs.NewCommentContext("01.08.2019", 2, "Platform"))

		clock = time.Date(2021, time.July, 31, 23, 0, 0, 0, time.UTC)
		Expect(job.Run(ctx)).To(Succeed())
		Expect(get("adam").GetTrainingYear()).To(Equal(2))

		clock = time.Date(2021, time.August, 1, 0, 30, 0, 0, time.UTC)
		Expect(job.Run(ctx)).To(Succeed())
		Expect(get("adam").GetTrainingYear()).To(Equal(3))

		clock = time.Date(2021, time.August, 2, 0, 30, 0, 0, time.UTC)
		Expect(job.Run(ctx)).To(Succeed())
		Expect(get("adam").GetTrainingYear()).To(Equal(3))
	})

	It("skips unparsable start dates and ignores future ones", func() {
		setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		put("empty", structs.NewCommentContext("", 2, "Ops"))
		put("future", structs.NewCommentContext("01.09.2021", 1, "Ops"))
		put("garbage", structs.NewCommentContext("next summer", 5, "Ops"))

		result, err := job.Rollover(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Skipped).To(Equal([]string{"empty", "garbage"}))
		Expect(result.Updated).To(BeEmpty())
		Expect(get("empty").GetTrainingYear()).To(Equal(2))
		Expect(get("future").GetTrainingYear()).To(Equal(1))
		Expect(get("garbage").GetTrainingYear()).To(Equal(5))
	})

	It("does nothing when the clock is behind the last run", func() {
		later := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
		setLastRun(later)
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))

		Expect(job.Run(ctx)).To(Succeed())

		Expect(get("adam").GetTrainingYear()).To(Equal(1))
		Expect(lastRun()).To(BeTemporally("==", later))
	})

	It("does not mutate contexts held by callers", func() {
		setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		held := structs.NewCommentContext("01.08.2019", 1, "Platform")
		put("adam", held)

		Expect(job.Run(ctx)).To(Succeed())

		Expect(held.GetTrainingYear()).To(Equal(1))
		Expect(get("adam").GetTrainingYear()).To(Equal(2))
	})

	It("stops when the context is canceled", func() {
		setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		put("adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := job.Rollover(canceled)
		Expect(err).To(MatchError(context.Canceled))
		Expect(get("adam").GetTrainingYear()).To(Equal(1))
	})

	Context("with a failing store", func() {
		var (
			ctrl      *gomock.Controller
			mockStore *mocks.MockStore
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			mockStore = mocks.NewMockStore(ctrl)
			job = periodicjobs.NewTrainingYearRolloverJob(mockStore, mem, nil, 0).
				WithClock(func() time.Time { return clock })
			setLastRun(time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC))
		})

		It("returns list errors", func() {
			mockStore.EXPECT().List(gomock.Any()).Return(nil, errors.New("redis down"))

			Expect(job.Run(ctx)).To(MatchError("redis down"))
		})

		It("ignores records deleted during the run", func() {
			mockStore.EXPECT().List(gomock.Any()).Return(map[string]structs.CommentContext{
				"gone": structs.NewCommentContext("01.08.2019", 1, "Platform"),
			}, nil)
			mockStore.EXPECT().Update(gomock.Any(), "gone", gomock.Any()).
				Return(structs.CommentContext{}, false, store.ErrNotFound)

			result, err := job.Rollover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Updated).To(BeEmpty())
		})

		It("keeps a record rewritten between list and update", func() {
			listed := structs.NewCommentContext("01.08.2019", 1, "Platform")
			rewritten := structs.NewCommentContext("01.08.2019", 1, "Billing")

			mockStore.EXPECT().List(gomock.Any()).Return(map[string]structs.CommentContext{"adam": listed}, nil)
			mockStore.EXPECT().Update(gomock.Any(), "adam", gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, fn store.UpdateFunc) (structs.CommentContext, bool, error) {
					next, changed := fn(rewritten)
					Expect(changed).To(BeFalse())
					Expect(next).To(Equal(rewritten))
					return next, changed, nil
				})

			result, err := job.Rollover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Updated).To(BeEmpty())
		})

		It("returns update errors and keeps the last run", func() {
			mockStore.EXPECT().List(gomock.Any()).Return(map[string]structs.CommentContext{
				"adam": structs.NewCommentContext("01.08.2019", 1, "Platform"),
			}, nil)
			mockStore.EXPECT().Update(gomock.Any(), "adam", gomock.Any()).
				Return(structs.CommentContext{}, false, errors.New("write failed"))

			_, err := job.Rollover(ctx)
			Expect(err).To(MatchError("write failed"))
			Expect(lastRun()).To(BeTemporally("==", time.Date(2020, time.July, 30, 8, 0, 0, 0, time.UTC)))
		})
	})
})

package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/nurpe/energy-contracts/internal/model"
)

func TestPendingRegistrySweep(t *testing.T) {
	Convey("Given a registry with a transition parked for one customer", t, func() {
		now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		registry := newPendingRegistry(10*time.Minute, func() time.Time { return now })
		var expired []PendingTransition
		registry.onExpire = func(p PendingTransition) { expired = append(expired, p) }

		idle := uuid.New()
		_, err := registry.park(PendingTransition{ContractID: uuid.New(), CustomerID: idle, Commodity: model.CommodityGas})
		So(err, ShouldBeNil)

		Convey("When its TTL passes and another customer parks a transition", func() {
			now = now.Add(11 * time.Minute)
			_, err := registry.park(PendingTransition{ContractID: uuid.New(), CustomerID: uuid.New(), Commodity: model.CommodityLuce})
			So(err, ShouldBeNil)

			Convey("Then the idle customer's transition is dropped without being looked up", func() {
				So(registry.byContract, ShouldHaveLength, 1)
				So(expired, ShouldHaveLength, 1)
				So(expired[0].CustomerID, ShouldEqual, idle)
			})
		})

		Convey("When its TTL passes and another customer's transitions are listed", func() {
			now = now.Add(11 * time.Minute)
			live := registry.forCustomer(uuid.New(), map[model.Commodity]bool{model.CommodityGas: true})

			Convey("Then the expired entry is swept too", func() {
				So(live, ShouldBeEmpty)
				So(registry.byContract, ShouldBeEmpty)
				So(expired, ShouldHaveLength, 1)
			})
		})

		Convey("When the TTL has not passed", func() {
			now = now.Add(5 * time.Minute)
			live := registry.forCustomer(idle, map[model.Commodity]bool{model.CommodityGas: true})

			Convey("Then the transition is kept", func() {
				So(live, ShouldHaveLength, 1)
				So(expired, ShouldBeEmpty)
			})
		})
	})
}

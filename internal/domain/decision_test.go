package domain

import (
	"errors"
	"testing"
)

func TestValidatePlan(t *testing.T) {
	cases := []struct {
		name  string
		tasks []SubTask
		ok    bool
	}{
		{"empty", nil, true},
		{"no deps", []SubTask{{Description: "a"}, {Description: "b"}}, true},
		{"earlier ref", []SubTask{{}, {DependsOn: []int{0}}}, true},
		{"diamond", []SubTask{{}, {DependsOn: []int{0}}, {DependsOn: []int{0}}, {DependsOn: []int{1, 2}}}, true},
		{"self ref", []SubTask{{DependsOn: []int{0}}}, false},
		{"forward ref", []SubTask{{DependsOn: []int{1}}, {}}, false},
		{"negative", []SubTask{{}, {DependsOn: []int{-1}}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidatePlan(c.tasks)
			if c.ok && err != nil {
				t.Fatalf("ValidatePlan() = %v, want nil", err)
			}
			if !c.ok {
				if err == nil {
					t.Fatalf("ValidatePlan() = nil, want error")
				}
				if !errors.Is(err, ErrInvalidPlan) {
					t.Errorf("ValidatePlan() error = %v, want ErrInvalidPlan", err)
				}
			}
		})
	}
}

func TestCompound(t *testing.T) {
	if (RoutingDecision{}).Compound() {
		t.Errorf("empty decision reported compound")
	}
	if (RoutingDecision{SubTasks: []SubTask{{}}}).Compound() {
		t.Errorf("single sub-task reported compound")
	}
	if !(RoutingDecision{SubTasks: []SubTask{{}, {}}}).Compound() {
		t.Errorf("two sub-tasks not reported compound")
	}
}
